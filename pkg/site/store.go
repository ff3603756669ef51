package site

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups for rows that don't exist
var ErrNotFound = errors.New("not found")

// Users looks up accounts and their capabilities
type Users interface {
	User(ctx context.Context, id int64) (*User, error)
	Can(ctx context.Context, id int64, capability string) (bool, error)
	ListWithCapability(ctx context.Context, capability string) ([]int64, error)
}

// Terms resolves category IDs to names
type Terms interface {
	CategoryName(ctx context.Context, id int64) (string, error)
}

// Options reads and writes site options
type Options interface {
	Get(ctx context.Context, key string) (interface{}, bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// Directory attaches names to IDs when the log is read. Missing IDs are
// left out of the returned maps.
type Directory interface {
	DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error)
	Logins(ctx context.Context, ids []int64) (map[int64]string, error)
	PostTitles(ctx context.Context, ids []int64) (map[int64]string, error)
}

// CurrentIssueFrom reads the current issue option, falling back to the default
func CurrentIssueFrom(ctx context.Context, options Options) CurrentIssue {
	value, ok, err := options.Get(ctx, OptionCurrentIssue)
	if err != nil || !ok {
		return DefaultCurrentIssue
	}
	issue, ok := ParseCurrentIssue(value)
	if !ok {
		return DefaultCurrentIssue
	}
	return issue
}
