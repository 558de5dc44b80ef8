package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Market   MarketConfig   `yaml:"market"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	// URL is a Postgres connection string. Empty selects the in-memory
	// store, which is enough for demo runs and tests.
	URL string `yaml:"url"`
}

type LedgerConfig struct {
	StartingCash     string   `yaml:"starting_cash"`
	PortfolioName    string   `yaml:"portfolio_name"`
	WatchlistName    string   `yaml:"watchlist_name"`
	WatchlistSymbols []string `yaml:"watchlist_symbols"`
	TradeLogLimit    int      `yaml:"trade_log_limit"`
}

type MarketConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Ledger: LedgerConfig{
			StartingCash:     "10000",
			PortfolioName:    "Main Portfolio",
			WatchlistName:    "My Watchlist",
			WatchlistSymbols: []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA"},
			TradeLogLimit:    50,
		},
		Market: MarketConfig{
			RefreshInterval: 30 * time.Second,
		},
	}
}

// Load reads the YAML file at path when it is non-empty, applies environment
// overrides and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if addr := os.Getenv("LEDGER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	}
	if cash := os.Getenv("LEDGER_STARTING_CASH"); cash != "" {
		c.Ledger.StartingCash = cash
	}
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if _, err := c.StartingCash(); err != nil {
		return err
	}
	if c.Ledger.TradeLogLimit <= 0 {
		return fmt.Errorf("trade log limit must be positive: %d", c.Ledger.TradeLogLimit)
	}
	if c.Market.RefreshInterval <= 0 {
		return fmt.Errorf("market refresh interval must be positive: %s", c.Market.RefreshInterval)
	}
	return nil
}

// StartingCash parses the configured starting cash balance.
func (c *Config) StartingCash() (decimal.Decimal, error) {
	cash, err := decimal.NewFromString(c.Ledger.StartingCash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid starting cash %q: %w", c.Ledger.StartingCash, err)
	}
	if cash.IsNegative() {
		return decimal.Zero, fmt.Errorf("starting cash must not be negative: %s", cash)
	}
	return cash, nil
}
