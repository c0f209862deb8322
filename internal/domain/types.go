// Package domain defines the core types shared across monitor-b3: tickers,
// persisted watchlist rows, price quotes and benchmark index series.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Tickers and persisted rows
// ---------------------------------------------------------------------------

// Ticker is a normalized B3 symbol such as "PETR4". The zero value is not a
// valid ticker.
type Ticker string

// NormalizeTicker upper-cases and trims s. Empty cells and the "NAN" marker
// that spreadsheet exports use for blank values normalize to "".
func NormalizeTicker(s string) Ticker {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "NAN" {
		return ""
	}
	return Ticker(v)
}

// Valid reports whether t is non-empty.
func (t Ticker) Valid() bool { return t != "" }

func (t Ticker) String() string { return string(t) }

// Row is one persisted selection: column 0 is the user id, column 1 the
// ticker. Rows are not unique; several sessions may append the same pair.
type Row struct {
	UserID string
	Ticker Ticker
}

// Matches reports whether the row belongs to userID and holds ticker t.
func (r Row) Matches(userID string, t Ticker) bool {
	return r.UserID == userID && r.Ticker == t
}

// ---------------------------------------------------------------------------
// Quotes
// ---------------------------------------------------------------------------

// QuoteSource records which lookup tier produced a PriceQuote.
type QuoteSource string

const (
	SourceSnapshot QuoteSource = "snapshot"
	SourceHistory  QuoteSource = "history"
	SourceNone     QuoteSource = "none"
)

// PriceQuote is the last price and previous close for a ticker. A quote with
// Source == SourceNone carries no prices and renders as "no data".
type PriceQuote struct {
	Ticker        Ticker
	Last          decimal.Decimal
	PreviousClose decimal.Decimal
	Source        QuoteSource
	AsOf          time.Time
}

// NoData returns the explicit unavailable quote for t.
func NoData(t Ticker) PriceQuote {
	return PriceQuote{Ticker: t, Source: SourceNone}
}

// Available reports whether q carries prices.
func (q PriceQuote) Available() bool {
	return q.Source == SourceSnapshot || q.Source == SourceHistory
}

// Change returns Last - PreviousClose.
func (q PriceQuote) Change() decimal.Decimal {
	return q.Last.Sub(q.PreviousClose)
}

// ChangePct returns the change relative to the previous close, in percent.
// ok is false when the previous close is zero.
func (q PriceQuote) ChangePct() (pct decimal.Decimal, ok bool) {
	if q.PreviousClose.IsZero() {
		return decimal.Zero, false
	}
	return q.Change().Div(q.PreviousClose).Mul(decimal.NewFromInt(100)), true
}

// ---------------------------------------------------------------------------
// Index series
// ---------------------------------------------------------------------------

// Index is a configured benchmark, e.g. {Name: "IBOV", Symbol: "^BVSP"}.
type Index struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
}

// Point is a single daily close.
type Point struct {
	Date  time.Time
	Close float64
}

// Trend is the direction of a series from its first to its last point.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Chart colours per trend.
const (
	ColorUp   = "#16a34a"
	ColorDown = "#dc2626"
)

// Color returns the chart colour for the trend.
func (t Trend) Color() string {
	if t == TrendDown {
		return ColorDown
	}
	return ColorUp
}

// IndexSeries is an ascending run of daily closes for one index.
type IndexSeries struct {
	Index  Index
	Points []Point
}

// Trend is up when the last close is at or above the first (flat counts as
// up) and down otherwise.
func (s IndexSeries) Trend() Trend {
	if len(s.Points) == 0 {
		return TrendUp
	}
	if s.Points[len(s.Points)-1].Close >= s.Points[0].Close {
		return TrendUp
	}
	return TrendDown
}
