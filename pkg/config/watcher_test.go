package config

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/masthead/pkg/observability"
)

func TestNewWatcherRequiresPath(t *testing.T) {
	_, err := NewWatcher("", 90, nil, nil)
	require.Error(t, err)
}

func TestWatcherReportsRetentionChanges(t *testing.T) {
	path := writeFile(t, t.TempDir(), "retention:\n  days: 90\n")
	changes := make(chan int, 4)

	w, err := NewWatcher(path, 90, func(days int) { changes <- days },
		observability.NewLogger(observability.ErrorLevel, io.Discard))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Invalid and unchanged windows are ignored
	require.NoError(t, os.WriteFile(path, []byte("retention:\n  days: 7\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("retention:\n  days: 90\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("retention:\n  days: 120\n"), 0o600))

	select {
	case days := <-changes:
		assert.Equal(t, 120, days)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the retention change")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
