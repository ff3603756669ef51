package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps entries in process. It is used by tests and by
// single-node deployments that do not need the log to survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	nextID  int64
	clock   Clock
}

// MemoryStoreOption configures a MemoryStore
type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock overrides the clock used to stamp entries
func WithMemoryClock(clock Clock) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.clock = clock
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		nextID: 1,
		clock:  UTCNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert stores a copy of the entry
func (s *MemoryStore) Insert(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextID
	entry.Timestamp = s.clock().UTC()
	s.nextID++

	stored := copyEntry(entry)
	s.entries = append(s.entries, stored)
	return nil
}

// List returns matching entries, newest first
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.limit()
	result := make([]*Entry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if matches(s.entries[i], filter) {
			result = append(result, copyEntry(s.entries[i]))
		}
	}
	return result, nil
}

// Count returns the number of matching entries
func (s *MemoryStore) Count(ctx context.Context, filter Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.entries {
		if matches(e, filter) {
			n++
		}
	}
	return n, nil
}

// ListBefore returns entries older than cutoff, oldest first
func (s *MemoryStore) ListBefore(ctx context.Context, cutoff time.Time) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Entry
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			result = append(result, copyEntry(e))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// DeleteBefore removes entries older than cutoff
func (s *MemoryStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

// Drop removes all entries. IDs keep increasing afterwards.
func (s *MemoryStore) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

func matches(e *Entry, f Filter) bool {
	if f.ActorID != 0 && e.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && !strings.HasPrefix(e.Action, f.Action) {
		return false
	}
	if f.BeforeID != 0 && e.ID >= f.BeforeID {
		return false
	}
	return true
}

// copyEntry deep-copies an entry so callers can never alter stored rows
func copyEntry(e *Entry) *Entry {
	c := *e
	c.Message = DecodeMessage(EncodeMessage(e.Message))
	if e.TargetID != nil {
		id := *e.TargetID
		c.TargetID = &id
	}
	return &c
}
