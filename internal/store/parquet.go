package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"monitorb3/internal/domain"
)

// RowRecord is the Parquet schema of an exported watchlist row.
type RowRecord struct {
	Position   int64  `parquet:"position"`
	UserID     string `parquet:"user_id"`
	Ticker     string `parquet:"ticker"`
	ExportedAt int64  `parquet:"exported_at,timestamp(millisecond)"` // Unix ms
}

// ExportPath returns the default export file for t.
// Layout: <dir>/watchlist-<YYYY-MM-DD>.parquet
func ExportPath(dir string, t time.Time) string {
	return filepath.Join(dir, "watchlist-"+t.Format("2006-01-02")+".parquet")
}

// ExportRows writes rows to a Parquet file at path, keeping table order in
// the position column.
func ExportRows(path string, rows []domain.Row, at time.Time) error {
	records := make([]RowRecord, len(rows))
	for i, r := range rows {
		records[i] = RowRecord{
			Position:   int64(i),
			UserID:     r.UserID,
			Ticker:     string(r.Ticker),
			ExportedAt: at.UnixMilli(),
		}
	}
	if err := writeParquetFile(path, records); err != nil {
		return fmt.Errorf("exporting rows to %s: %w", path, err)
	}
	return nil
}

// ReadExport reads an export file back into rows.
func ReadExport(path string) ([]domain.Row, error) {
	records, err := readParquetFile[RowRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading export %s: %w", path, err)
	}
	rows := make([]domain.Row, len(records))
	for i, r := range records {
		rows[i] = domain.Row{UserID: r.UserID, Ticker: domain.Ticker(r.Ticker)}
	}
	return rows, nil
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
