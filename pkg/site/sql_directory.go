package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// SQLDirectory reads users, posts and category terms from the CMS database.
//
// Expected tables:
//
//	users (id BIGINT, login TEXT, display_name TEXT, roles TEXT)  -- roles comma separated
//	posts (id BIGINT, title TEXT, type TEXT)
//	terms (id BIGINT, name TEXT)
type SQLDirectory struct {
	db       *sql.DB
	postgres bool
}

// NewSQLDirectory wraps db. driver is the database/sql driver name.
func NewSQLDirectory(db *sql.DB, driver string) (*SQLDirectory, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLDirectory{db: db, postgres: driver == "postgres"}, nil
}

// inClause returns "= ANY($1)" with a pq array on postgres, "IN (?,?)" elsewhere
func (d *SQLDirectory) inClause(ids []int64) (string, []interface{}) {
	if d.postgres {
		return "= ANY($1)", []interface{}{pq.Array(ids)}
	}
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return "IN (" + strings.Join(marks, ",") + ")", args
}

func (d *SQLDirectory) bind(n int) string {
	if d.postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// User loads one user
func (d *SQLDirectory) User(ctx context.Context, id int64) (*User, error) {
	var (
		u     User
		roles string
	)
	err := d.db.QueryRowContext(ctx,
		"SELECT id, login, display_name, roles FROM users WHERE id = "+d.bind(1), id,
	).Scan(&u.ID, &u.Login, &u.DisplayName, &roles)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	u.Roles = splitRoles(roles)
	return &u, nil
}

// Can reports whether the user's roles grant capability
func (d *SQLDirectory) Can(ctx context.Context, id int64, capability string) (bool, error) {
	u, err := d.User(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return RolesCan(u.Roles, capability), nil
}

// ListWithCapability returns the IDs of users holding capability
func (d *SQLDirectory) ListWithCapability(ctx context.Context, capability string) ([]int64, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id, roles FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var (
			id    int64
			roles string
		)
		if err := rows.Scan(&id, &roles); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if RolesCan(splitRoles(roles), capability) {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// CategoryName returns the name of a category term
func (d *SQLDirectory) CategoryName(ctx context.Context, id int64) (string, error) {
	var name string
	err := d.db.QueryRowContext(ctx, "SELECT name FROM terms WHERE id = "+d.bind(1), id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load category %d: %w", id, err)
	}
	return name, nil
}

// DisplayNames resolves user display names, falling back to logins
func (d *SQLDirectory) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return d.lookup(ctx, "SELECT id, COALESCE(NULLIF(display_name, ''), login) FROM users WHERE id ", ids)
}

// Logins resolves user logins
func (d *SQLDirectory) Logins(ctx context.Context, ids []int64) (map[int64]string, error) {
	return d.lookup(ctx, "SELECT id, login FROM users WHERE id ", ids)
}

// PostTitles resolves post and page titles
func (d *SQLDirectory) PostTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	return d.lookup(ctx, "SELECT id, title FROM posts WHERE id ", ids)
}

func (d *SQLDirectory) lookup(ctx context.Context, prefix string, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	clause, args := d.inClause(ids)
	rows, err := d.db.QueryContext(ctx, prefix+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		out[id] = name
	}
	return out, rows.Err()
}

func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
