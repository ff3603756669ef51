package site

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteDirectory(t *testing.T) *SQLDirectory {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, login TEXT, display_name TEXT, roles TEXT)`,
		`CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT, type TEXT)`,
		`CREATE TABLE terms (id INTEGER PRIMARY KEY, name TEXT)`,
		`INSERT INTO users VALUES (1, 'admin', 'Ada Admin', 'administrator')`,
		`INSERT INTO users VALUES (5, 'copyeditor', '', 'editor, author')`,
		`INSERT INTO posts VALUES (42, 'Prof spotted in MC', 'post')`,
		`INSERT INTO terms VALUES (3, 'Editor okayed')`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	dir, err := NewSQLDirectory(db, "sqlite3")
	require.NoError(t, err)
	return dir
}

func TestSQLDirectory_SQLite(t *testing.T) {
	ctx := context.Background()
	dir := setupSQLiteDirectory(t)

	t.Run("user and roles", func(t *testing.T) {
		u, err := dir.User(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{RoleEditor, RoleAuthor}, u.Roles)

		_, err = dir.User(ctx, 6)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("capabilities", func(t *testing.T) {
		ok, err := dir.Can(ctx, 5, CapDeleteOthersPosts)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = dir.Can(ctx, 6, CapEditPosts)
		require.NoError(t, err)
		assert.False(t, ok)

		ids, err := dir.ListWithCapability(ctx, CapManageOptions)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids)
	})

	t.Run("names", func(t *testing.T) {
		names, err := dir.DisplayNames(ctx, []int64{1, 5, 6})
		require.NoError(t, err)
		assert.Equal(t, map[int64]string{1: "Ada Admin", 5: "copyeditor"}, names)

		titles, err := dir.PostTitles(ctx, []int64{42})
		require.NoError(t, err)
		assert.Equal(t, "Prof spotted in MC", titles[42])

		empty, err := dir.Logins(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)

		name, err := dir.CategoryName(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Editor okayed", name)
	})
}

func TestSQLDirectory_PostgresUsesArray(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dir, err := NewSQLDirectory(db, "postgres")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, login FROM users WHERE id = ANY\(\$1\)`).
		WithArgs(pq.Array([]int64{1, 2})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "login"}).AddRow(1, "admin"))

	logins, err := dir.Logins(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "admin"}, logins)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLDirectory_RequiresDB(t *testing.T) {
	_, err := NewSQLDirectory(nil, "postgres")
	assert.Error(t, err)
}
