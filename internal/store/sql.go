package store

import (
	"context"
	"database/sql"
	"fmt"

	"monitorb3/internal/domain"
)

// sqlTable implements RowStore over database/sql. The driver-specific parts
// are the schema and the placeholder syntax.
type sqlTable struct {
	db     *sql.DB
	name   string
	insert string
	delete string
}

const selectRows = `SELECT user_id, ticker FROM watchlist ORDER BY id`

func (t *sqlTable) Name() string { return t.name }

// ReadRows returns every row ordered by insertion id.
func (t *sqlTable) ReadRows(ctx context.Context) ([]domain.Row, error) {
	rs, err := t.db.QueryContext(ctx, selectRows)
	if err != nil {
		return nil, fmt.Errorf("%s: reading rows: %w", t.name, err)
	}
	defer rs.Close()

	var rows []domain.Row
	for rs.Next() {
		var user, ticker string
		if err := rs.Scan(&user, &ticker); err != nil {
			return nil, fmt.Errorf("%s: scanning row: %w", t.name, err)
		}
		rows = append(rows, domain.Row{UserID: user, Ticker: domain.Ticker(ticker)})
	}
	return rows, rs.Err()
}

// AppendRow inserts a row; its id orders it after every existing row.
func (t *sqlTable) AppendRow(ctx context.Context, row domain.Row) error {
	if _, err := t.db.ExecContext(ctx, t.insert, row.UserID, string(row.Ticker)); err != nil {
		return fmt.Errorf("%s: appending row: %w", t.name, err)
	}
	return nil
}

// DeleteRow deletes the row at position index in id order.
func (t *sqlTable) DeleteRow(ctx context.Context, index int) error {
	if index < 0 {
		return ErrRowIndex
	}
	res, err := t.db.ExecContext(ctx, t.delete, index)
	if err != nil {
		return fmt.Errorf("%s: deleting row %d: %w", t.name, index, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: deleting row %d: %w", t.name, index, err)
	}
	if n == 0 {
		return ErrRowIndex
	}
	return nil
}

// Close closes the underlying database connection.
func (t *sqlTable) Close() error {
	return t.db.Close()
}
