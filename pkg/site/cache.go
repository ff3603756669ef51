package site

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultDirectoryCacheSize = 2048
	defaultDirectoryCacheTTL  = time.Minute
)

// CachedDirectory remembers resolved names in front of a slower Directory.
// Only hits are cached, so an ID that is missing is looked up every time;
// a name stays cached for the TTL after its row is deleted.
type CachedDirectory struct {
	next   Directory
	names  *expirable.LRU[int64, string]
	logins *expirable.LRU[int64, string]
	titles *expirable.LRU[int64, string]
}

// NewCachedDirectory wraps next. Non-positive size or ttl use the defaults.
func NewCachedDirectory(next Directory, size int, ttl time.Duration) *CachedDirectory {
	if size <= 0 {
		size = defaultDirectoryCacheSize
	}
	if ttl <= 0 {
		ttl = defaultDirectoryCacheTTL
	}
	return &CachedDirectory{
		next:   next,
		names:  expirable.NewLRU[int64, string](size, nil, ttl),
		logins: expirable.NewLRU[int64, string](size, nil, ttl),
		titles: expirable.NewLRU[int64, string](size, nil, ttl),
	}
}

// DisplayNames resolves user display names
func (c *CachedDirectory) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return resolveCached(ctx, c.names, ids, c.next.DisplayNames)
}

// Logins resolves user logins
func (c *CachedDirectory) Logins(ctx context.Context, ids []int64) (map[int64]string, error) {
	return resolveCached(ctx, c.logins, ids, c.next.Logins)
}

// PostTitles resolves post and page titles
func (c *CachedDirectory) PostTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	return resolveCached(ctx, c.titles, ids, c.next.PostTitles)
}

func resolveCached(
	ctx context.Context,
	cache *expirable.LRU[int64, string],
	ids []int64,
	load func(context.Context, []int64) (map[int64]string, error),
) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	var missing []int64
	for _, id := range ids {
		if v, ok := cache.Get(id); ok {
			out[id] = v
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := load(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, v := range loaded {
		cache.Add(id, v)
		out[id] = v
	}
	return out, nil
}
