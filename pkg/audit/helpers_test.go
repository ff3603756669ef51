package audit

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/masthead/pkg/observability"
	"github.com/platinummonkey/masthead/pkg/site"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

// newTestSite has an administrator (1), an editor (5), a contributor (9),
// one article (42) and one page (7)
func newTestSite() *site.Memory {
	m := site.NewMemory()
	m.PutUser(site.User{ID: 1, Login: "admin", DisplayName: "Ada Admin", Roles: []string{site.RoleAdministrator}})
	m.PutUser(site.User{ID: 5, Login: "copyeditor", DisplayName: "Cole Pyeditor", Roles: []string{site.RoleEditor}})
	m.PutUser(site.User{ID: 9, Login: "writer", DisplayName: "Wren Writer", Roles: []string{site.RoleContributor}})
	m.PutPost(site.Post{ID: 42, Type: site.TypePost, Title: "Prof spotted in MC", AuthorID: 9})
	m.PutPost(site.Post{ID: 7, Type: site.TypePage, Title: "Masthead"})
	return m
}

func mustRecorder(t *testing.T, store Store) *Recorder {
	t.Helper()
	r, err := NewRecorder(store, NewMetrics(nil))
	require.NoError(t, err)
	return r
}

func seedEntries(t *testing.T, r *Recorder, n int, action string) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, r.Append(context.Background(), action, 5, 42, Message{"i": i}))
	}
}
