package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"    // registers the "postgres" driver
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	tableName   = "content_kv"
	keyColumn   = "content_key"
	valueColumn = "content_value"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS content_kv (
	content_key   TEXT PRIMARY KEY,
	content_value TEXT NOT NULL,
	updated_at    TIMESTAMP NOT NULL
)`

// SQLStore implements Store on a single two-column table. It works with
// both PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite); only the
// placeholder format differs.
type SQLStore struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

// NewSQLStore wraps db. Use sq.Dollar for PostgreSQL and sq.Question for
// SQLite.
func NewSQLStore(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLStore {
	return &SQLStore{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(placeholder),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// openSQL opens driverName with dsn, ensures the table exists and returns
// the store.
func openSQL(ctx context.Context, driverName, dsn string, placeholder sq.PlaceholderFormat) (*SQLStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driverName, err)
	}
	if driverName == "sqlite" {
		// Writers serialize on SQLite; one connection also keeps :memory: shared.
		db.SetMaxOpenConns(1)
	}

	st := NewSQLStore(db, placeholder)
	if err := st.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// EnsureSchema creates the content table when it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("%w: creating %s table: %v", ErrUnavailable, tableName, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Ping
// ---------------------------------------------------------------------------

// Ping verifies that the database connection is alive.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

// Get returns the document stored under key.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.sb.
		Select(valueColumn).
		From(tableName).
		Where(sq.Eq{keyColumn: key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", ErrUnavailable, key, err)
	}
	return []byte(value), nil
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

// Set upserts the document stored under key.
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	query, args, err := s.sb.
		Insert(tableName).
		Columns(keyColumn, valueColumn, "updated_at").
		Values(key, string(value), s.now()).
		Suffix("ON CONFLICT (content_key) DO UPDATE SET content_value = excluded.content_value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("building upsert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: writing %q: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
