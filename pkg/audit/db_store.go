package audit

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var storeTracer = otel.Tracer("masthead/audit/store")

// DefaultTableName is the table the log lives in unless configured otherwise
const DefaultTableName = "mn_audit_log"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect identifies the SQL flavour spoken by the database
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// placeholder returns the n-th (1-based) bind parameter
func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) idColumn() string {
	if d == DialectPostgres {
		return "log_id BIGSERIAL PRIMARY KEY"
	}
	return "log_id INTEGER PRIMARY KEY AUTOINCREMENT"
}

// DBStore implements Store on database/sql
type DBStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
	clock   Clock
}

// DBStoreOption configures a DBStore
type DBStoreOption func(*DBStore)

// WithTableName overrides DefaultTableName
func WithTableName(name string) DBStoreOption {
	return func(s *DBStore) {
		s.table = name
	}
}

// WithDBClock overrides the clock used to stamp entries
func WithDBClock(clock Clock) DBStoreOption {
	return func(s *DBStore) {
		s.clock = clock
	}
}

// NewDBStore creates a database-backed store. Call EnsureSchema before first use.
func NewDBStore(db *sql.DB, dialect Dialect, opts ...DBStoreOption) (*DBStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	s := &DBStore{
		db:      db,
		dialect: dialect,
		table:   DefaultTableName,
		clock:   UTCNow,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !tableNamePattern.MatchString(s.table) {
		return nil, fmt.Errorf("invalid table name: %q", s.table)
	}
	return s, nil
}

// EnsureSchema creates the log table and its indexes if they don't exist
func (s *DBStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s,
		log_time TIMESTAMP NOT NULL,
		log_action VARCHAR(%d) NOT NULL,
		log_actor_id BIGINT NOT NULL,
		log_target_id BIGINT NULL,
		log_message TEXT NOT NULL
	)`, s.table, s.dialect.idColumn(), MaxActionLength),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_time ON %s(log_time)", s.table, s.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_action ON %s(log_action)", s.table, s.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_actor_id ON %s(log_actor_id)", s.table, s.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_target_id ON %s(log_target_id)", s.table, s.table),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure %s table: %w", s.table, err)
		}
	}
	return nil
}

// Insert writes the entry and assigns its ID and Timestamp
func (s *DBStore) Insert(ctx context.Context, entry *Entry) error {
	ctx, span := storeTracer.Start(ctx, "audit.store.insert",
		trace.WithAttributes(attribute.String("audit.action", entry.Action)))
	defer span.End()

	stamp := s.clock().UTC()
	var target interface{}
	if entry.TargetID != nil {
		target = *entry.TargetID
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (log_time, log_action, log_actor_id, log_target_id, log_message)
		VALUES (%s, %s, %s, %s, %s)
		RETURNING log_id
	`, s.table,
		s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3),
		s.dialect.placeholder(4), s.dialect.placeholder(5))

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		stamp, entry.Action, entry.ActorID, target, string(EncodeMessage(entry.Message)),
	).Scan(&id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	entry.ID = id
	entry.Timestamp = stamp
	return nil
}

// whereClause builds the shared WHERE for List and Count
func (s *DBStore) whereClause(filter Filter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.ActorID != 0 {
		args = append(args, filter.ActorID)
		conditions = append(conditions, "log_actor_id = "+s.dialect.placeholder(len(args)))
	}
	if filter.Action != "" {
		args = append(args, escapeLike(filter.Action)+"%")
		conditions = append(conditions, "log_action LIKE "+s.dialect.placeholder(len(args))+` ESCAPE '\'`)
	}
	if filter.BeforeID != 0 {
		args = append(args, filter.BeforeID)
		conditions = append(conditions, "log_id < "+s.dialect.placeholder(len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns matching entries, newest first
func (s *DBStore) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	ctx, span := storeTracer.Start(ctx, "audit.store.list")
	defer span.End()

	where, args := s.whereClause(filter)
	args = append(args, filter.limit())
	query := fmt.Sprintf(
		"SELECT log_id, log_time, log_action, log_actor_id, log_target_id, log_message FROM %s%s ORDER BY log_id DESC LIMIT %s",
		s.table, where, s.dialect.placeholder(len(args)))

	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("audit.rows", len(entries)))
	return entries, nil
}

// Count returns the number of matching entries
func (s *DBStore) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := s.whereClause(filter)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.table, where)

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

// ListBefore returns every entry older than cutoff, oldest first
func (s *DBStore) ListBefore(ctx context.Context, cutoff time.Time) ([]*Entry, error) {
	query := fmt.Sprintf(
		"SELECT log_id, log_time, log_action, log_actor_id, log_target_id, log_message FROM %s WHERE log_time < %s ORDER BY log_id ASC",
		s.table, s.dialect.placeholder(1))
	return s.queryEntries(ctx, query, cutoff.UTC())
}

// DeleteBefore removes entries older than cutoff
func (s *DBStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := storeTracer.Start(ctx, "audit.store.delete_before")
	defer span.End()

	query := fmt.Sprintf("DELETE FROM %s WHERE log_time < %s", s.table, s.dialect.placeholder(1))
	result, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to delete expired audit entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("audit.deleted", rowsAffected))
	return rowsAffected, nil
}

// Drop removes the log table
func (s *DBStore) Drop(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", s.table, err)
	}
	return nil
}

func (s *DBStore) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e       Entry
			target  sql.NullInt64
			message string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.ActorID, &target, &message); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if target.Valid {
			id := target.Int64
			e.TargetID = &id
		}
		e.Timestamp = e.Timestamp.UTC()
		e.Message = DecodeMessage([]byte(message))
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

// escapeLike escapes LIKE wildcards so a filter is matched as a literal prefix
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
