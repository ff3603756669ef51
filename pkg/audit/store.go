package audit

import (
	"context"
	"time"
)

// Clock returns the current time. Stores stamp entries with their own clock.
type Clock func() time.Time

// UTCNow is the default store clock
func UTCNow() time.Time {
	return time.Now().UTC()
}

// Store persists audit entries
type Store interface {
	// Insert writes a new entry, assigning its ID and Timestamp
	Insert(ctx context.Context, entry *Entry) error

	// List returns entries matching the filter, newest first, at most filter.Limit
	List(ctx context.Context, filter Filter) ([]*Entry, error)

	// Count returns the number of entries matching the filter, ignoring Limit
	Count(ctx context.Context, filter Filter) (int64, error)

	// ListBefore returns every entry stamped strictly before cutoff, oldest first
	ListBefore(ctx context.Context, cutoff time.Time) ([]*Entry, error)

	// DeleteBefore removes entries stamped strictly before cutoff
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Drop removes the whole log
	Drop(ctx context.Context) error
}
