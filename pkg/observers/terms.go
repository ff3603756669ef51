package observers

import (
	"context"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/masthead/pkg/site"
)

const (
	defaultTermCacheSize = 256
	defaultTermCacheTTL  = 10 * time.Minute
)

// termCache resolves category names, remembering them for a while
type termCache struct {
	terms site.Terms
	cache *expirable.LRU[int64, string]
}

func newTermCache(terms site.Terms, size int, ttl time.Duration) *termCache {
	if size <= 0 {
		size = defaultTermCacheSize
	}
	if ttl <= 0 {
		ttl = defaultTermCacheTTL
	}
	return &termCache{
		terms: terms,
		cache: expirable.NewLRU[int64, string](size, nil, ttl),
	}
}

// name returns the category's name, or its ID when it can't be resolved
func (c *termCache) name(ctx context.Context, id int64, metrics *Metrics) string {
	if name, ok := c.cache.Get(id); ok {
		countLookup(metrics, "hit")
		return name
	}

	name, err := c.terms.CategoryName(ctx, id)
	if err != nil {
		countLookup(metrics, "error")
		return strconv.FormatInt(id, 10)
	}
	countLookup(metrics, "miss")
	c.cache.Add(id, name)
	return name
}

func (c *termCache) names(ctx context.Context, ids []int64, metrics *Metrics) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.name(ctx, id, metrics))
	}
	return out
}

func countLookup(metrics *Metrics, result string) {
	if metrics != nil {
		metrics.TermLookup.WithLabelValues(result).Inc()
	}
}
