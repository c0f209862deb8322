package universe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"monitorb3/internal/cache"
	"monitorb3/internal/util"
)

// Options configures a Loader.
type Options struct {
	URL                string
	TickerColumn       string
	PrimaryDelimiter   rune
	AlternateDelimiter rune
	Timeout            time.Duration
	Retries            int
	CacheTTL           time.Duration
}

// Loader fetches and parses the universe CSV. Results are cached per URL for
// CacheTTL and shared by every session.
type Loader struct {
	opts   Options
	client *http.Client
	cache  *cache.TTL[string, *Universe]
	log    *slog.Logger
}

// NewLoader creates a Loader. A nil client gets one with opts.Timeout.
func NewLoader(opts Options, client *http.Client) *Loader {
	if opts.TickerColumn == "" {
		opts.TickerColumn = "TICKER"
	}
	if opts.PrimaryDelimiter == 0 {
		opts.PrimaryDelimiter = ';'
	}
	if opts.AlternateDelimiter == 0 {
		opts.AlternateDelimiter = ','
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Loader{
		opts:   opts,
		client: client,
		cache:  cache.New[string, *Universe](4, opts.CacheTTL),
		log:    slog.Default().With("component", "universe"),
	}
}

// Load returns the universe, from cache when fresh.
func (l *Loader) Load(ctx context.Context) (*Universe, error) {
	return l.cache.Get(l.opts.URL, func() (*Universe, error) {
		return l.fetch(ctx)
	})
}

// Invalidate drops the cached universe.
func (l *Loader) Invalidate() { l.cache.Purge() }

func (l *Loader) fetch(ctx context.Context) (*Universe, error) {
	if l.opts.URL == "" {
		return nil, fmt.Errorf("universe: no CSV URL configured")
	}

	var body []byte
	err := util.Retry(ctx, l.opts.Retries, 500*time.Millisecond, func() error {
		b, err := l.get(ctx)
		if err != nil {
			l.log.Warn("fetching universe CSV", "url", l.opts.URL, "error", err)
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching universe CSV: %w", err)
	}

	u, err := Parse(body, l.opts.PrimaryDelimiter, l.opts.AlternateDelimiter, l.opts.TickerColumn)
	if err != nil {
		l.log.Error("parsing universe CSV", "error", err)
		return nil, err
	}
	u.LoadedAt = time.Now()

	l.log.Info("loaded universe CSV",
		"delimiter", string(u.Delimiter),
		"attempts", len(u.Attempts),
		"columns", len(u.Columns),
		"rows", len(u.Rows),
		"skipped", u.Skipped,
		"tickers", len(u.byTicker),
	)
	return u, nil
}

func (l *Loader) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.opts.URL, nil)
	if err != nil {
		return nil, util.Permanent(err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("GET %s: status %s", l.opts.URL, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, util.Permanent(err)
		}
		return nil, err
	}
	return io.ReadAll(resp.Body)
}
