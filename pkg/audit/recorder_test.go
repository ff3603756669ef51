package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	MemoryStore
}

func (f *failingStore) Insert(ctx context.Context, entry *Entry) error {
	return errors.New("database is locked")
}

func TestNewRecorder_RequiresStore(t *testing.T) {
	_, err := NewRecorder(nil, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestRecorder_RejectionWithTarget(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := mustRecorder(t, store)

	err := r.Append(ctx, ActionPostReject, 5, 42, Message{
		"rationale": "too long",
		"returned":  true,
		"notified":  true,
	})
	require.NoError(t, err)

	entries, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.NotNil(t, e.TargetID)
	assert.Equal(t, int64(42), *e.TargetID)
	assert.Equal(t, int64(5), e.ActorID)
	assert.Equal(t, "too long", e.Message["rationale"])
	assert.Equal(t, true, e.Message["returned"])
	assert.Equal(t, true, e.Message["notified"])
}

func TestRecorder_WithoutTarget(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := mustRecorder(t, store)

	require.NoError(t, r.AppendWithoutTarget(ctx, ActionPluginCreate, 1, Message{"plugin_location": "akismet/akismet.php"}))

	entries, _ := store.List(ctx, Filter{})
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].TargetID)
	assert.False(t, entries[0].HasTarget())
}

func TestRecorder_MalformedAction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := mustRecorder(t, store)

	for _, action := range []string{"", "post", strings.Repeat("a", 20) + "." + strings.Repeat("b", 20)} {
		err := r.Append(ctx, action, 5, 42, nil)
		assert.ErrorIs(t, err, ErrMalformedAction, action)
	}

	n, _ := store.Count(ctx, Filter{})
	assert.Zero(t, n, "nothing is written for a malformed action")
}

func TestRecorder_NilMessage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := mustRecorder(t, store)

	require.NoError(t, r.Append(ctx, ActionUserPasswordReset, 1, 9, nil))
	entries, _ := store.List(ctx, Filter{})
	assert.Equal(t, Message{}, entries[0].Message)
}

func TestRecorder_UnencodableMessageStillRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := mustRecorder(t, store)

	require.NoError(t, r.Append(ctx, ActionSettingsUpdate, 1, 0, Message{"fn": func() {}, "option": "blogname"}))
	entries, _ := store.List(ctx, Filter{})
	require.Len(t, entries, 1)
	assert.Equal(t, "blogname", entries[0].Message["option"])
}

func TestRecorder_StoreFailure(t *testing.T) {
	metrics := NewMetrics(nil)
	r, err := NewRecorder(&failingStore{}, metrics)
	require.NoError(t, err)

	err = r.Append(context.Background(), ActionPostApprove, 5, 42, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post.approve")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RecordFailures.WithLabelValues(UnitPost)))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.EntriesRecorded.WithLabelValues(UnitPost)))
}

func TestRecorder_CountsEntries(t *testing.T) {
	metrics := NewMetrics(nil)
	r, err := NewRecorder(NewMemoryStore(), metrics)
	require.NoError(t, err)

	require.NoError(t, r.Append(context.Background(), ActionUserCreate, 1, 9, nil))
	require.NoError(t, r.Append(context.Background(), ActionUserDelete, 1, 9, nil))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.EntriesRecorded.WithLabelValues(UnitUser)))
}

func TestRecorder_CallerCannotSetTimestamp(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithMemoryClock(clock.Now))
	r := mustRecorder(t, store)

	require.NoError(t, r.Append(context.Background(), ActionPostUpdate, 5, 42, nil))
	entries, _ := store.List(context.Background(), Filter{})
	assert.True(t, entries[0].Timestamp.Equal(clock.Now()))
	assert.Equal(t, time.UTC, entries[0].Timestamp.Location())
}
