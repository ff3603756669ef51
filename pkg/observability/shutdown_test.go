package observability

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManagerReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, io.Discard), time.Second)
	var order []string
	for _, name := range []string{"database", "retention", "http"} {
		name := name
		sm.Register(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, []string{"http", "retention", "database"}, order)

	// A second call runs nothing
	require.NoError(t, sm.Shutdown())
	assert.Len(t, order, 3)
}

func TestShutdownManagerJoinsErrors(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, io.Discard), time.Second)
	boom := errors.New("boom")
	ran := false
	sm.Register("database", func(ctx context.Context) error {
		ran = true
		return nil
	})
	sm.Register("otel", func(ctx context.Context) error { return boom })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "otel")
	assert.True(t, ran, "a failing step does not stop the rest")
}

func TestShutdownManagerTimeout(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, io.Discard), 20*time.Millisecond)
	sm.Register("database", func(ctx context.Context) error { return nil })
	sm.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "database: shutdown timeout reached")
}
