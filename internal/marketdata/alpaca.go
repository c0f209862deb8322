package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"monitorb3/internal/domain"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

// alpacaClient is the part of *marketdata.Client used here.
type alpacaClient interface {
	GetSnapshot(symbol string, req marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error)
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaProvider reads quotes from the Alpaca market-data API. Alpaca lists
// US securities only; B3 tickers and Yahoo-style index symbols find no data.
type AlpacaProvider struct {
	client alpacaClient
	feed   string
	now    func() time.Time
}

// NewAlpacaProvider creates a provider with the given credentials. An empty
// dataURL uses the SDK default.
func NewAlpacaProvider(apiKey, apiSecret, dataURL, feed string) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaProvider{
		client: marketdata.NewClient(opts),
		feed:   feed,
		now:    time.Now,
	}
}

func (p *AlpacaProvider) Name() string { return "alpaca" }

// Snapshot returns the latest trade and the previous daily bar close.
func (p *AlpacaProvider) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	snap, err := p.client.GetSnapshot(symbol, marketdata.GetSnapshotRequest{Feed: marketdata.Feed(p.feed)})
	if err != nil {
		return Snapshot{}, fmt.Errorf("alpaca snapshot %s: %w", symbol, err)
	}
	if snap == nil {
		return Snapshot{}, fmt.Errorf("alpaca snapshot %s: no data", symbol)
	}

	var s Snapshot
	if snap.LatestTrade != nil {
		s.Last = snap.LatestTrade.Price
		s.AsOf = snap.LatestTrade.Timestamp
	}
	if snap.PrevDailyBar != nil {
		s.PreviousClose = snap.PrevDailyBar.Close
	}
	return s, nil
}

// DailyCloses fetches one-day bars over the window.
func (p *AlpacaProvider) DailyCloses(ctx context.Context, symbol string, days int) ([]domain.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := p.now()
	bars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     end.AddDate(0, 0, -days),
		End:       end,
		Feed:      marketdata.Feed(p.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}

	points := make([]domain.Point, 0, len(bars))
	for _, b := range bars {
		points = append(points, domain.Point{Date: b.Timestamp, Close: b.Close})
	}
	return points, nil
}
