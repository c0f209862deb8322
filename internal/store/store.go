// Package store persists watchlist selections as (user id, ticker) rows in
// a row-oriented table: SQLite, PostgreSQL, a Google Sheets tab or memory.
package store

import (
	"context"
	"errors"
	"fmt"

	"monitorb3/internal/config"
	"monitorb3/internal/domain"
)

// ErrRowIndex is returned by DeleteRow for an index past the last row.
var ErrRowIndex = errors.New("row index out of range")

// RowStore is the persistent selection table. Row indexes are positions in
// the slice returned by ReadRows and are only valid until the next write.
type RowStore interface {
	// Name identifies the backend in logs and health output.
	Name() string

	// ReadRows returns every row in table order.
	ReadRows(ctx context.Context) ([]domain.Row, error)

	// AppendRow adds a row at the end of the table.
	AppendRow(ctx context.Context, row domain.Row) error

	// DeleteRow removes the row at index.
	DeleteRow(ctx context.Context, index int) error

	// Close releases the backend connection.
	Close() error
}

// Open creates the row store selected by cfg.Storage.Driver. The returned
// handle is meant to live for the whole process.
func Open(ctx context.Context, cfg *config.Config) (RowStore, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.Storage.SQLitePath)
	case "postgres":
		return NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
	case "sheets":
		return NewSheetsStore(ctx, cfg.Sheets.DocumentID, cfg.Sheets.SheetName, cfg.Sheets.CredentialsFile, cfg.Sheets.HeaderRows)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
