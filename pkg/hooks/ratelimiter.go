package hooks

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket per sender
type RateLimiter struct {
	buckets      map[string]*tokenBucket
	mutex        sync.Mutex
	maxTokens    int
	refillPeriod time.Duration
	now          func() time.Time
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter allows maxRequests per sender, refilling one token every period
func NewRateLimiter(maxRequests int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:      make(map[string]*tokenBucket),
		maxTokens:    maxRequests,
		refillPeriod: period,
		now:          time.Now,
	}
}

// Allow takes a token for sender
func (rl *RateLimiter) Allow(sender string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	bucket := rl.bucket(sender)
	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}
	return false
}

// Remaining returns the tokens left for sender
func (rl *RateLimiter) Remaining(sender string) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return rl.bucket(sender).tokens
}

// Reset forgets sender
func (rl *RateLimiter) Reset(sender string) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	delete(rl.buckets, sender)
}

// bucket returns the refilled bucket for sender. Callers hold rl.mutex.
func (rl *RateLimiter) bucket(sender string) *tokenBucket {
	now := rl.now()
	b, ok := rl.buckets[sender]
	if !ok {
		b = &tokenBucket{tokens: rl.maxTokens, lastRefill: now}
		rl.buckets[sender] = b
		return b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed >= rl.refillPeriod {
		periods := int(elapsed / rl.refillPeriod)
		b.tokens = min(b.tokens+periods, rl.maxTokens)
		b.lastRefill = b.lastRefill.Add(time.Duration(periods) * rl.refillPeriod)
	}
	return b
}
