package observers

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/masthead/pkg/audit"
	"github.com/platinummonkey/masthead/pkg/observability"
	"github.com/platinummonkey/masthead/pkg/site"
)

type fakeRetention struct {
	days []int
}

func (f *fakeRetention) SetRetentionDays(ctx context.Context, days int) (int64, error) {
	f.days = append(f.days, days)
	return 0, nil
}

type fixture struct {
	observer  *Observer
	store     *audit.MemoryStore
	site      *site.Memory
	retention *fakeRetention
	metrics   *Metrics
}

// newFixture has an administrator (1), an editor (5) and a contributor (9)
// who wrote article 42
func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := site.NewMemory()
	s.PutUser(site.User{ID: 1, Login: "admin", DisplayName: "Ada Admin", Roles: []string{site.RoleAdministrator}})
	s.PutUser(site.User{ID: 5, Login: "copyeditor", DisplayName: "Cole Pyeditor", Roles: []string{site.RoleEditor}})
	s.PutUser(site.User{ID: 9, Login: "writer", DisplayName: "Wren Writer", Roles: []string{site.RoleContributor}})
	s.PutCategory(1, "Uncategorized")
	s.PutCategory(3, "Pending")
	s.PutCategory(4, "Rejected")
	s.PutCategory(5, "Editor okayed")
	require.NoError(t, s.Set(context.Background(), site.OptionDefaultCategory, "1"))
	require.NoError(t, s.Set(context.Background(), site.OptionCurrentIssue, []string{"150", "3"}))

	store := audit.NewMemoryStore()
	recorder, err := audit.NewRecorder(store, nil)
	require.NoError(t, err)

	retention := &fakeRetention{}
	metrics := NewMetrics(nil)
	o, err := New(recorder, Dependencies{
		Users:     s,
		Terms:     s,
		Options:   s,
		Retention: retention,
		Metrics:   metrics,
		Logger:    observability.NewLogger(observability.ErrorLevel, io.Discard),
	}, Config{})
	require.NoError(t, err)

	return &fixture{observer: o, store: store, site: s, retention: retention, metrics: metrics}
}

func (f *fixture) entries(t *testing.T) []*audit.Entry {
	t.Helper()
	entries, err := f.store.List(context.Background(), audit.Filter{Limit: 100})
	require.NoError(t, err)
	return entries
}

func (f *fixture) only(t *testing.T) *audit.Entry {
	t.Helper()
	entries := f.entries(t)
	require.Len(t, entries, 1)
	return entries[0]
}

func pendingArticle() *site.Post {
	return &site.Post{
		ID:         42,
		Type:       site.TypePost,
		Status:     site.StatusPending,
		AuthorID:   9,
		Title:      "Prof spotted in MC",
		Content:    "<p>It happened.</p>",
		Categories: []int64{3},
		Tags:       []string{"v150i3"},
	}
}

func deltasOf(t *testing.T, e *audit.Entry) map[string]interface{} {
	t.Helper()
	deltas, ok := e.Message["deltas"].(map[string]interface{})
	require.True(t, ok, "message has no deltas: %v", e.Message)
	return deltas
}
