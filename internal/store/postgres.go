package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver.
)

// Compile-time interface check.
var _ RowStore = (*PostgresStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS watchlist (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT NOT NULL,
	ticker     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS watchlist_user ON watchlist (user_id);
`

// PostgresStore is a RowStore for deployments that share one database
// between several monitor instances.
type PostgresStore struct {
	sqlTable
}

// NewPostgresStore connects to dsn, verifies the connection and creates the
// watchlist table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating postgres schema: %w", err)
	}
	return &PostgresStore{sqlTable{
		db:     db,
		name:   "postgres",
		insert: `INSERT INTO watchlist (user_id, ticker) VALUES ($1, $2)`,
		delete: `DELETE FROM watchlist WHERE id = (SELECT id FROM watchlist ORDER BY id LIMIT 1 OFFSET $1)`,
	}}, nil
}
