package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RowStore = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS watchlist (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	ticker     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS watchlist_user ON watchlist (user_id);
`

// SQLiteStore is the default RowStore, backed by a local SQLite file.
type SQLiteStore struct {
	sqlTable
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// watchlist table if needed and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Single connection: writes are serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &SQLiteStore{sqlTable{
		db:     db,
		name:   "sqlite",
		insert: `INSERT INTO watchlist (user_id, ticker) VALUES (?, ?)`,
		delete: `DELETE FROM watchlist WHERE id = (SELECT id FROM watchlist ORDER BY id LIMIT 1 OFFSET ?)`,
	}}, nil
}
