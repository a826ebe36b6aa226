// Package postgres implements the storage repositories on PostgreSQL via
// pgx. The schema is created on connect; there is no explicit versioning;
// all DDL is idempotent.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spinhq/cadence/internal/storage"
)

// Compile-time interface checks.
var (
	_ storage.ProgressStore = (*Store)(nil)
	_ storage.HistoryStore  = (*Store)(nil)
)

// userKey identifies the singleton progress row. The engine is single-user
// per deployment; a multi-tenant deployment would key this by account id.
const userKey = "default"

// Schema is the SQL DDL for all Cadence tables. Executed via [Store.Migrate]
// on connect; all statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS user_progress (
    user_key          TEXT PRIMARY KEY,
    name              TEXT NOT NULL DEFAULT '',
    onboarded         BOOLEAN NOT NULL DEFAULT FALSE,
    level             INT NOT NULL DEFAULT 1,
    xp                INT NOT NULL DEFAULT 0,
    streak_days       INT NOT NULL DEFAULT 0,
    best_streak       INT NOT NULL DEFAULT 0,
    last_session_date TEXT NOT NULL DEFAULT '',
    total_sessions    INT NOT NULL DEFAULT 0,
    total_minutes     INT NOT NULL DEFAULT 0,
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS sessions (
    id               TEXT PRIMARY KEY,
    type             TEXT NOT NULL,
    scene_id         TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL,
    duration_seconds INT NOT NULL,
    clarity          INT NOT NULL,
    impact           INT NOT NULL,
    crystal_earned   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
CREATE TABLE IF NOT EXISTS crystals (
    id        TEXT PRIMARY KEY,
    type      TEXT NOT NULL,
    earned_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS scene_stats (
    scene_id     TEXT PRIMARY KEY,
    times_played INT NOT NULL DEFAULT 0,
    best_score   INT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS techniques_used (
    id        TEXT PRIMARY KEY,
    marked_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy it; tests supply hand-rolled mocks.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the PostgreSQL-backed implementation of [storage.ProgressStore]
// and [storage.HistoryStore]. All methods are safe for concurrent use.
type Store struct {
	db   DB
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn, verifies it
// with a ping, and ensures the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB wraps an existing connection or mock. The caller is
// responsible for [Store.Migrate] when needed.
func NewStoreWithDB(db DB) *Store {
	return &Store{db: db}
}

// Migrate executes the [Schema] DDL.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// Ping verifies database connectivity. Mock-backed stores always report
// healthy.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool, when the Store owns one.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
