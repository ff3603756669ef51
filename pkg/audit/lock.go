package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/platinummonkey/masthead/pkg/observability"
)

const lockReleaseTimeout = 5 * time.Second

// Locker keeps concurrent replicas from purging at the same time
type Locker interface {
	// TryLock returns ok=false without error when another holder has the lock
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// RedisLocker implements Locker with SET NX PX
type RedisLocker struct {
	client *redis.Client
	prefix string
	logger *observability.Logger
}

// RedisLockerOption configures a RedisLocker
type RedisLockerOption func(*RedisLocker)

// WithLockLogger sets the logger that reports failed releases
func WithLockLogger(logger *observability.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker creates a locker on client. Keys are namespaced by prefix.
func NewRedisLocker(client *redis.Client, prefix string, opts ...RedisLockerOption) *RedisLocker {
	if prefix == "" {
		prefix = "masthead:lock"
	}
	l := &RedisLocker{client: client, prefix: prefix}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return l
}

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock acquires key for ttl
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock failed: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	// A failed release leaves the key to expire after ttl
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
		defer cancel()
		err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
		if err != nil && err != redis.Nil {
			l.logger.WithError(err).WithField("key", redisKey).Warn("Failed to release lock")
		}
	}
	return release, true, nil
}
