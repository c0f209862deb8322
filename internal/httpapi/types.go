package httpapi

import (
	"time"

	"monitorb3/internal/dashboard"
	"monitorb3/internal/domain"
	"monitorb3/internal/session"
)

// Page is the view model of the dashboard page.
type Page struct {
	Title       string
	Flash       *session.Flash
	Email       string
	Universe    []domain.Ticker
	Watchlist   []domain.Ticker
	Caption     string
	Empty       bool
	MarketOpen  bool
	Provider    string
	UpdatedAt   string
	Index       string
	Indices     []IndexOption
	Chart       dashboard.Chart
	Summary     dashboard.Summary
	CardColumns [][]dashboard.Card
}

// IndexOption is one entry of the index selector.
type IndexOption struct {
	Name     string
	Href     string
	Selected bool
}

// ErrorPage is the view model of the fatal universe page.
type ErrorPage struct {
	Title   string
	Message string
	Columns []string
	Details []string
}

// QuoteJSON is the JSON representation of a price quote.
type QuoteJSON struct {
	Ticker        string  `json:"ticker"`
	Source        string  `json:"source"`
	Last          *string `json:"last,omitempty"`
	PreviousClose *string `json:"previousClose,omitempty"`
	Change        *string `json:"change,omitempty"`
	ChangePct     *string `json:"changePct,omitempty"`
	Display       string  `json:"display"`
	AsOf          string  `json:"asOf,omitempty"`
}

// WatchlistResponse lists the session's tickers with quotes.
type WatchlistResponse struct {
	Email   string      `json:"email,omitempty"`
	Max     int         `json:"max"`
	Tickers []QuoteJSON `json:"tickers"`
}

// TickersResponse lists the universe tickers.
type TickersResponse struct {
	Tickers []string `json:"tickers"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status          string `json:"status"`
	UniverseTickers int    `json:"universe_tickers"`
	Store           string `json:"store"`
	Provider        string `json:"provider"`
	Sessions        int    `json:"sessions"`
	Error           string `json:"error,omitempty"`
}

func strPtr(s string) *string { return &s }

// convertQuote converts a domain.PriceQuote to JSON. Prices are decimal
// strings so no precision is lost.
func convertQuote(q domain.PriceQuote) QuoteJSON {
	out := QuoteJSON{Ticker: q.Ticker.String(), Source: string(q.Source), Display: dashboard.NoData}
	if !q.Available() {
		return out
	}
	out.Last = strPtr(q.Last.StringFixed(2))
	out.PreviousClose = strPtr(q.PreviousClose.StringFixed(2))
	out.Change = strPtr(q.Change().StringFixed(2))
	if pct, ok := q.ChangePct(); ok {
		out.ChangePct = strPtr(pct.StringFixed(2))
	}
	out.Display = dashboard.FormatBRL(q.Last)
	if !q.AsOf.IsZero() {
		out.AsOf = q.AsOf.UTC().Format(time.RFC3339)
	}
	return out
}
