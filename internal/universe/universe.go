// Package universe loads the spreadsheet of selectable B3 tickers from a
// published CSV export.
package universe

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"monitorb3/internal/domain"
)

var (
	// ErrEmpty is returned for a CSV without a header row.
	ErrEmpty = errors.New("empty CSV")
	// ErrWrongDelimiter is returned when the header parses as a single
	// column that contains the other delimiter.
	ErrWrongDelimiter = errors.New("header is a single column, delimiter mismatch")
)

// MissingColumnError is the fatal failure of a universe without a ticker
// column. Found lists the normalized columns that were detected.
type MissingColumnError struct {
	Column string
	Found  []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %s not found; detected columns: %s", e.Column, strings.Join(e.Found, ", "))
}

// Attempt records one parse pass and its outcome.
type Attempt struct {
	Delimiter rune
	Err       error
}

func (a Attempt) String() string {
	if a.Err == nil {
		return fmt.Sprintf("%q: ok", a.Delimiter)
	}
	return fmt.Sprintf("%q: %v", a.Delimiter, a.Err)
}

// ParseError is returned when every delimiter failed.
type ParseError struct {
	Attempts []Attempt
}

func (e *ParseError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.String()
	}
	return "parsing CSV: " + strings.Join(parts, "; ")
}

func (e *ParseError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Universe is the parsed spreadsheet. Rows are padded to len(Columns).
type Universe struct {
	Columns   []string
	Rows      [][]string
	Delimiter rune
	Attempts  []Attempt
	Skipped   int
	LoadedAt  time.Time

	tickerCol int
	byTicker  map[domain.Ticker][]int
}

func newUniverse(columns []string, rows [][]string, tickerCol int) *Universe {
	u := &Universe{
		Columns:   columns,
		Rows:      rows,
		tickerCol: tickerCol,
		byTicker:  make(map[domain.Ticker][]int),
	}
	for i, row := range rows {
		t := domain.NormalizeTicker(row[tickerCol])
		row[tickerCol] = string(t)
		if !t.Valid() {
			continue
		}
		u.byTicker[t] = append(u.byTicker[t], i)
	}
	return u
}

// TickerColumn returns the index of the ticker column in Columns.
func (u *Universe) TickerColumn() int { return u.tickerCol }

// Tickers returns the distinct tickers, sorted, for the picker.
func (u *Universe) Tickers() []domain.Ticker {
	out := make([]domain.Ticker, 0, len(u.byTicker))
	for t := range u.byTicker {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether t is in the universe.
func (u *Universe) Contains(t domain.Ticker) bool {
	_, ok := u.byTicker[t]
	return ok
}

// RowsFor returns the rows of each ticker in list, in list order. Tickers
// missing from the universe contribute nothing.
func (u *Universe) RowsFor(list []domain.Ticker) [][]string {
	var out [][]string
	for _, t := range list {
		for _, i := range u.byTicker[t] {
			out = append(out, u.Rows[i])
		}
	}
	return out
}

// Value returns the cell of column (normalized name) for the first row of t.
func (u *Universe) Value(t domain.Ticker, column string) (string, bool) {
	idx := -1
	for i, c := range u.Columns {
		if c == column {
			idx = i
			break
		}
	}
	rows := u.byTicker[t]
	if idx < 0 || len(rows) == 0 {
		return "", false
	}
	return u.Rows[rows[0]][idx], true
}
