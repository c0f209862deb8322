// Package marketdata looks up ticker quotes and benchmark index series. A
// Lookup wraps a Provider with the snapshot/history fallback, the exchange
// suffix, rate limiting and the shared read caches.
package marketdata

import (
	"context"
	"time"

	"monitorb3/internal/domain"
)

// Snapshot is the fast-path quote: last trade and previous close. Zero
// values mean the provider had no figure.
type Snapshot struct {
	Last          float64
	PreviousClose float64
	AsOf          time.Time
}

// Complete reports whether both prices are usable.
func (s Snapshot) Complete() bool {
	return s.Last > 0 && s.PreviousClose > 0
}

// Provider is a market data backend. Symbols are passed exactly as the
// provider expects them (suffix already applied).
type Provider interface {
	Name() string

	// Snapshot returns the latest trade and previous close.
	Snapshot(ctx context.Context, symbol string) (Snapshot, error)

	// DailyCloses returns daily closes covering the last days calendar days.
	// Order is unspecified and missing closes are NaN.
	DailyCloses(ctx context.Context, symbol string, days int) ([]domain.Point, error)
}
