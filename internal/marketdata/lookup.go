package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"monitorb3/internal/cache"
	"monitorb3/internal/domain"
	"monitorb3/internal/util"
)

// TrailingPoints is the number of closes kept in an index series.
const TrailingPoints = 5

// ErrInsufficientData is returned by Series when fewer than two closes
// survive cleaning.
var ErrInsufficientData = errors.New("insufficient data")

// Options configures a Lookup.
type Options struct {
	SymbolSuffix string // appended to tickers, e.g. ".SA"
	HistoryDays  int    // calendar days fetched by the quote fallback
	CacheTTL     time.Duration
	CacheSize    int
	Limiter      *util.RateLimiter

	// FetchTimeout bounds one cache load. Loads ignore the caller's
	// cancellation; their result is shared by every session.
	FetchTimeout time.Duration
}

// defaultFetchTimeout applies when Options.FetchTimeout is unset.
const defaultFetchTimeout = 30 * time.Second

type seriesKey struct {
	Symbol string
	Days   int
}

// Lookup resolves quotes and index series through a Provider.
type Lookup struct {
	provider Provider
	opts     Options
	quotes   *cache.TTL[domain.Ticker, domain.PriceQuote]
	series   *cache.TTL[seriesKey, domain.IndexSeries]
	log      *slog.Logger
}

// NewLookup creates a Lookup over p.
func NewLookup(p Provider, opts Options) *Lookup {
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 5
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	return &Lookup{
		provider: p,
		opts:     opts,
		quotes:   cache.New[domain.Ticker, domain.PriceQuote](opts.CacheSize, opts.CacheTTL),
		series:   cache.New[seriesKey, domain.IndexSeries](opts.CacheSize, opts.CacheTTL),
		log:      slog.Default().With("component", "marketdata", "provider", p.Name()),
	}
}

// Provider returns the underlying provider name.
func (l *Lookup) Provider() string { return l.provider.Name() }

// ---------------------------------------------------------------------------
// Quotes
// ---------------------------------------------------------------------------

// Quote returns the price of t. It tries the snapshot first and falls back to
// the last two daily closes; if both fail the result is domain.NoData(t).
// Quote never returns an error.
func (l *Lookup) Quote(ctx context.Context, t domain.Ticker) domain.PriceQuote {
	q, _ := l.quotes.Get(t, func() (domain.PriceQuote, error) {
		ctx, cancel := l.detach(ctx)
		defer cancel()
		return l.quote(ctx, t), nil
	})
	return q
}

// detach returns a context that keeps ctx's values but not its cancellation,
// bounded by FetchTimeout instead.
func (l *Lookup) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), l.opts.FetchTimeout)
}

func (l *Lookup) quote(ctx context.Context, t domain.Ticker) domain.PriceQuote {
	symbol := string(t) + l.opts.SymbolSuffix

	snap, err := l.snapshot(ctx, symbol)
	switch {
	case err != nil:
		l.log.Debug("snapshot failed, trying history", "symbol", symbol, "error", err)
	case !snap.Complete():
		l.log.Debug("snapshot incomplete, trying history", "symbol", symbol,
			"last", snap.Last, "prev_close", snap.PreviousClose)
	default:
		return domain.PriceQuote{
			Ticker:        t,
			Last:          decimal.NewFromFloat(snap.Last),
			PreviousClose: decimal.NewFromFloat(snap.PreviousClose),
			Source:        domain.SourceSnapshot,
			AsOf:          snap.AsOf,
		}
	}

	points, err := l.closes(ctx, symbol, l.opts.HistoryDays)
	if err != nil {
		l.log.Warn("no quote", "symbol", symbol, "error", err)
		return domain.NoData(t)
	}
	points = clean(points)
	if len(points) == 0 {
		l.log.Warn("no quote", "symbol", symbol, "error", "empty history")
		return domain.NoData(t)
	}

	last := points[len(points)-1]
	prev := last
	if len(points) >= 2 {
		prev = points[len(points)-2]
	}
	return domain.PriceQuote{
		Ticker:        t,
		Last:          decimal.NewFromFloat(last.Close),
		PreviousClose: decimal.NewFromFloat(prev.Close),
		Source:        domain.SourceHistory,
		AsOf:          last.Date,
	}
}

// ---------------------------------------------------------------------------
// Index series
// ---------------------------------------------------------------------------

// Series returns the trailing TrailingPoints closes of idx over windowDays,
// ascending by date. The index symbol is used as-is. Fewer than two closes
// yield ErrInsufficientData.
func (l *Lookup) Series(ctx context.Context, idx domain.Index, windowDays int) (domain.IndexSeries, error) {
	return l.series.Get(seriesKey{Symbol: idx.Symbol, Days: windowDays}, func() (domain.IndexSeries, error) {
		ctx, cancel := l.detach(ctx)
		defer cancel()
		points, err := l.closes(ctx, idx.Symbol, windowDays)
		if err != nil {
			return domain.IndexSeries{}, fmt.Errorf("loading %s: %w", idx.Symbol, err)
		}
		points = clean(points)
		if len(points) > TrailingPoints {
			points = points[len(points)-TrailingPoints:]
		}
		if len(points) < 2 {
			return domain.IndexSeries{}, fmt.Errorf("%s: %d closes: %w", idx.Symbol, len(points), ErrInsufficientData)
		}
		return domain.IndexSeries{Index: idx, Points: points}, nil
	})
}

// ---------------------------------------------------------------------------
// Provider calls
// ---------------------------------------------------------------------------

func (l *Lookup) snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	if err := l.opts.Limiter.Wait(ctx); err != nil {
		return Snapshot{}, err
	}
	return l.provider.Snapshot(ctx, symbol)
}

func (l *Lookup) closes(ctx context.Context, symbol string, days int) ([]domain.Point, error) {
	if err := l.opts.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.provider.DailyCloses(ctx, symbol, days)
}

// clean drops missing closes and sorts ascending by date.
func clean(points []domain.Point) []domain.Point {
	out := make([]domain.Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
