package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"monitorb3/internal/config"
	"monitorb3/internal/marketdata"
	"monitorb3/internal/universe"
	"monitorb3/internal/util"
)

var configPath = flag.String("config", defaultConfigPath(), "Path to the YAML configuration file (env MONITORB3_CONFIG)")

func defaultConfigPath() string {
	if p := os.Getenv("MONITORB3_CONFIG"); p != "" {
		return p
	}
	return "config/monitor-b3.yaml"
}

// loadConfig reads the configuration and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))
	return cfg, nil
}

func newUniverseLoader(cfg *config.Config) *universe.Loader {
	return universe.NewLoader(universe.Options{
		URL:                cfg.Universe.SourceURL(),
		TickerColumn:       cfg.Universe.TickerColumn,
		PrimaryDelimiter:   []rune(cfg.Universe.PrimaryDelimiter)[0],
		AlternateDelimiter: []rune(cfg.Universe.AlternateDelimiter)[0],
		Timeout:            cfg.Universe.Timeout(),
		Retries:            cfg.Universe.Retries,
		CacheTTL:           cfg.Cache.TTL(),
	}, nil)
}

func newProvider(cfg *config.Config) (marketdata.Provider, error) {
	switch cfg.MarketData.Provider {
	case "alpaca":
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			return nil, fmt.Errorf("alpaca provider needs APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
		return marketdata.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed), nil
	default:
		return marketdata.NewYahooProvider(cfg.MarketData.YahooBaseURL, &http.Client{Timeout: cfg.MarketData.Timeout()}), nil
	}
}

func newLookup(cfg *config.Config) (*marketdata.Lookup, error) {
	p, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return marketdata.NewLookup(p, marketdata.Options{
		SymbolSuffix: cfg.MarketData.SymbolSuffix,
		HistoryDays:  cfg.MarketData.HistoryDays,
		CacheTTL:     cfg.Cache.TTL(),
		CacheSize:    cfg.Cache.Size,
		Limiter:      util.NewRateLimiter(cfg.MarketData.RateLimitPerMin, 10),
		FetchTimeout: 3 * cfg.MarketData.Timeout(),
	}), nil
}
