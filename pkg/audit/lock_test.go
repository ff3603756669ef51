package audit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/masthead/pkg/observability"
)

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	locker := NewRedisLocker(client, "test")

	release, ok, err := locker.TryLock(ctx, "purge", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("test:purge"))

	_, ok, err = locker.TryLock(ctx, "purge", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not get the lock")

	release()
	assert.False(t, mr.Exists("test:purge"))

	t.Run("expires", func(t *testing.T) {
		_, ok, err := locker.TryLock(ctx, "expiring", time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		mr.FastForward(2 * time.Second)
		_, ok, err = locker.TryLock(ctx, "expiring", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stale release keeps new holder", func(t *testing.T) {
		staleRelease, ok, err := locker.TryLock(ctx, "handoff", time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		mr.FastForward(2 * time.Second)
		_, ok, err = locker.TryLock(ctx, "handoff", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		staleRelease()
		assert.True(t, mr.Exists("test:handoff"))
	})

	t.Run("redis down", func(t *testing.T) {
		broken := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		defer broken.Close()

		_, ok, err := NewRedisLocker(broken, "").TryLock(ctx, "purge", time.Minute)
		assert.False(t, ok)
		assert.Contains(t, err.Error(), "redis lock failed")
	})
}

func TestRedisLockerLogsFailedRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	var buf bytes.Buffer
	locker := NewRedisLocker(client, "test", WithLockLogger(observability.NewLogger(observability.WarnLevel, &buf)))

	release, ok, err := locker.TryLock(context.Background(), "purge", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.Close()
	release()
	assert.Contains(t, buf.String(), "Failed to release lock")
	assert.Contains(t, buf.String(), "test:purge")
}
