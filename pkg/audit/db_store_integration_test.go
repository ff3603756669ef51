//go:build integration

package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresStore(t *testing.T) *DBStore {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("masthead_test"),
		postgres.WithUsername("masthead"),
		postgres.WithPassword("masthead_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())

	store, err := NewDBStore(db, DialectPostgres)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestDBStore_PostgresPaging(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)
	r := mustRecorder(t, store)

	seedEntries(t, r, 45, ActionPostUpdate)

	var sizes []int
	var before int64
	for {
		entries, err := store.List(ctx, Filter{BeforeID: before})
		require.NoError(t, err)
		if len(entries) == 0 {
			break
		}
		sizes = append(sizes, len(entries))
		before = entries[len(entries)-1].ID
	}
	assert.Equal(t, []int{20, 20, 5}, sizes)

	// a second EnsureSchema is a no-op
	require.NoError(t, store.EnsureSchema(ctx))

	require.NoError(t, store.Drop(ctx))
	require.NoError(t, store.Drop(ctx))
}
