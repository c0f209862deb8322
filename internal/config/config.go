package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"monitorb3/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for monitor-b3.
type Config struct {
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
	Universe   Universe   `yaml:"universe"`
	Storage    Storage    `yaml:"storage"`
	Sheets     Sheets     `yaml:"sheets"`
	MarketData MarketData `yaml:"market_data"`
	Alpaca     Alpaca     `yaml:"alpaca"`
	Indices    Indices    `yaml:"indices"`
	Cache      Cache      `yaml:"cache"`
	Calendar   Calendar   `yaml:"calendar"`
}

// Server holds network listener configuration.
type Server struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	GRPCPort   int    `yaml:"grpc_port"`
	SessionTTL int    `yaml:"session_ttl_sec"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Universe points at the published CSV that lists selectable tickers. Either
// CSVURL or SheetID must be set; SheetID+GID build the Google Sheets export
// URL.
type Universe struct {
	CSVURL             string `yaml:"csv_url"`
	SheetID            string `yaml:"sheet_id"`
	GID                string `yaml:"gid"`
	TickerColumn       string `yaml:"ticker_column"`
	PrimaryDelimiter   string `yaml:"primary_delimiter"`
	AlternateDelimiter string `yaml:"alternate_delimiter"`
	TimeoutSec         int    `yaml:"timeout_sec"`
	Retries            int    `yaml:"retries"`
}

// Storage selects the row store that persists watchlists.
// Driver is one of "sqlite", "postgres", "sheets" or "memory".
type Storage struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	ExportDir   string `yaml:"export_dir"`
}

// Sheets addresses the Google Sheets tab used when Storage.Driver is
// "sheets".
type Sheets struct {
	DocumentID      string `yaml:"document_id"`
	SheetName       string `yaml:"sheet_name"`
	CredentialsFile string `yaml:"credentials_file"`
	HeaderRows      int    `yaml:"header_rows"`
}

// MarketData configures quote and index lookups.
type MarketData struct {
	Provider        string `yaml:"provider"` // "yahoo" or "alpaca"
	SymbolSuffix    string `yaml:"symbol_suffix"`
	YahooBaseURL    string `yaml:"yahoo_base_url"`
	TimeoutSec      int    `yaml:"timeout_sec"`
	HistoryDays     int    `yaml:"history_days"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Indices lists the benchmarks offered by the chart selector.
type Indices struct {
	Benchmarks []domain.Index `yaml:"benchmarks"`
	WindowDays int            `yaml:"window_days"`
}

// Cache controls the process-wide read caches.
type Cache struct {
	TTLSec int `yaml:"ttl_sec"`
	Size   int `yaml:"size"`
}

// Calendar selects the exchange calendar by ISO 10383 MIC.
type Calendar struct {
	MIC string `yaml:"mic"`
}

// ---------------------------------------------------------------------------
// Derived values
// ---------------------------------------------------------------------------

// SourceURL returns the universe CSV URL.
func (u Universe) SourceURL() string {
	if u.CSVURL != "" {
		return u.CSVURL
	}
	if u.SheetID == "" {
		return ""
	}
	url := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", u.SheetID)
	if u.GID != "" {
		url += "&gid=" + u.GID
	}
	return url
}

// Timeout returns the universe fetch timeout.
func (u Universe) Timeout() time.Duration { return time.Duration(u.TimeoutSec) * time.Second }

// Timeout returns the per-request market data timeout.
func (m MarketData) Timeout() time.Duration { return time.Duration(m.TimeoutSec) * time.Second }

// TTL returns the cache time-to-live.
func (c Cache) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

// HTTPAddr returns host:port for the page server.
func (s Server) HTTPAddr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// GRPCAddr returns host:port for the health service.
func (s Server) GRPCAddr() string { return fmt.Sprintf("%s:%d", s.Host, s.GRPCPort) }

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config with every field set to its default.
func Default() *Config {
	return &Config{
		Server: Server{
			Host:       "0.0.0.0",
			Port:       8501,
			GRPCPort:   9501,
			SessionTTL: 12 * 60 * 60,
		},
		Logging: Logging{Level: "info", Format: "json"},
		Universe: Universe{
			TickerColumn:       "TICKER",
			PrimaryDelimiter:   ";",
			AlternateDelimiter: ",",
			TimeoutSec:         15,
			Retries:            3,
		},
		Storage: Storage{
			Driver:     "sqlite",
			SQLitePath: "data/monitor-b3.db",
			ExportDir:  "data/export",
		},
		Sheets: Sheets{SheetName: "watchlist", HeaderRows: 1},
		MarketData: MarketData{
			Provider:        "yahoo",
			SymbolSuffix:    ".SA",
			YahooBaseURL:    "https://query1.finance.yahoo.com",
			TimeoutSec:      10,
			HistoryDays:     5,
			RateLimitPerMin: 120,
		},
		Alpaca: Alpaca{Feed: "iex"},
		Indices: Indices{
			Benchmarks: []domain.Index{
				{Name: "IBOV", Symbol: "^BVSP"},
				{Name: "S&P 500", Symbol: "^GSPC"},
			},
			WindowDays: 10,
		},
		Cache:    Cache{TTLSec: 300, Size: 1024},
		Calendar: Calendar{MIC: "bvmf"},
	}
}

// Load reads the YAML configuration file at the given path on top of
// Default(), and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that no default can fill in.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "sheets", "memory":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
	}
	if c.Storage.Driver == "sheets" && c.Sheets.DocumentID == "" {
		return fmt.Errorf("sheets.document_id is required for the sheets driver")
	}
	switch c.MarketData.Provider {
	case "yahoo", "alpaca":
	default:
		return fmt.Errorf("market_data.provider: unknown provider %q", c.MarketData.Provider)
	}
	if len(c.Universe.PrimaryDelimiter) != 1 || len(c.Universe.AlternateDelimiter) != 1 {
		return fmt.Errorf("universe delimiters must be single characters")
	}
	if len(c.Indices.Benchmarks) == 0 {
		return fmt.Errorf("indices.benchmarks: at least one index is required")
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MONITORB3_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	if v := os.Getenv("CSV_URL"); v != "" {
		cfg.Universe.CSVURL = v
	}

	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.PostgresDSN = v
	}

	if v := os.Getenv("SHEETS_DOCUMENT_ID"); v != "" {
		cfg.Sheets.DocumentID = v
	}

	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.Sheets.CredentialsFile = v
	}

	if v := os.Getenv("MARKET_DATA_PROVIDER"); v != "" {
		cfg.MarketData.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars, the names the SDK itself reads.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("APCA_API_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
}
