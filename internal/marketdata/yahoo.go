package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"monitorb3/internal/domain"
)

// Compile-time interface check.
var _ Provider = (*YahooProvider)(nil)

// YahooProvider reads the public Yahoo Finance chart endpoint.
type YahooProvider struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewYahooProvider creates a provider against baseURL
// (https://query1.finance.yahoo.com in production).
func NewYahooProvider(baseURL string, client *http.Client) *YahooProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &YahooProvider{baseURL: baseURL, client: client, now: time.Now}
}

func (p *YahooProvider) Name() string { return "yahoo" }

// -----------------------------------------------------------------------------

// chartResponse is the subset of /v8/finance/chart used here. Nulls in the
// quote arrays decode to nil pointers.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

// Snapshot uses the chart meta block of a one-day range.
func (p *YahooProvider) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	resp, err := p.chart(ctx, symbol, url.Values{"interval": {"1d"}, "range": {"1d"}})
	if err != nil {
		return Snapshot{}, err
	}
	meta := resp.Chart.Result[0].Meta
	prev := meta.PreviousClose
	if prev <= 0 {
		prev = meta.ChartPreviousClose
	}
	return Snapshot{
		Last:          meta.RegularMarketPrice,
		PreviousClose: prev,
		AsOf:          time.Unix(meta.RegularMarketTime, 0),
	}, nil
}

// DailyCloses requests daily bars between now-days and now.
func (p *YahooProvider) DailyCloses(ctx context.Context, symbol string, days int) ([]domain.Point, error) {
	end := p.now()
	start := end.AddDate(0, 0, -days)
	resp, err := p.chart(ctx, symbol, url.Values{
		"interval": {"1d"},
		"period1":  {strconv.FormatInt(start.Unix(), 10)},
		"period2":  {strconv.FormatInt(end.Unix(), 10)},
	})
	if err != nil {
		return nil, err
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("yahoo %s: %d timestamps but %d closes", symbol, len(result.Timestamp), len(closes))
	}

	points := make([]domain.Point, len(closes))
	for i, c := range closes {
		v := math.NaN()
		if c != nil {
			v = *c
		}
		points[i] = domain.Point{Date: time.Unix(result.Timestamp[i], 0).UTC(), Close: v}
	}
	return points, nil
}

func (p *YahooProvider) chart(ctx context.Context, symbol string, params url.Values) (*chartResponse, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(symbol), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	// The endpoint rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; monitor-b3)")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: reading body: %w", symbol, err)
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo %s: status %s", symbol, resp.Status)
		}
		return nil, fmt.Errorf("yahoo %s: decoding: %w", symbol, err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %s", symbol, cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: status %s", symbol, resp.Status)
	}
	if len(cr.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: empty result", symbol)
	}
	return &cr, nil
}
