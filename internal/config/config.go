// Package config loads the eventret YAML configuration and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when EVENTRET_CONFIG is unset.
const DefaultPath = "config/eventret.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for eventret.
type Config struct {
	Storage  Storage   `yaml:"storage"`
	Server   Server    `yaml:"server"`
	Alpaca   Alpaca    `yaml:"alpaca"`
	Logging  Logging   `yaml:"logging"`
	Provider Provider  `yaml:"provider"`
	Backtest Backtest  `yaml:"backtest"`
	Gather   Gather    `yaml:"gather"`
	Catalogs []Catalog `yaml:"catalogs"`
	Offsets  Offsets   `yaml:"offsets"`
}

// Storage holds paths for the local bar cache.
type Storage struct {
	Backend    string `yaml:"backend"` // "parquet", "sqlite" or "none"
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	GRPCPort int      `yaml:"grpc_port"`
	CORS     []string `yaml:"cors_origins"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Provider selects and tunes the upstream price source.
type Provider struct {
	Source          string        `yaml:"source"` // "alpaca" or "chart"
	ChartURL        string        `yaml:"chart_url"`
	Timeout         time.Duration `yaml:"timeout"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	MaxAttempts     int           `yaml:"max_attempts"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
	// Offline serves backtests from the local store only; the gatherer
	// still uses Source.
	Offline bool `yaml:"offline"`
}

// Backtest holds defaults for backtest runs.
type Backtest struct {
	Symbol      string `yaml:"symbol"`
	Catalog     string `yaml:"catalog"`
	BufferDays  int    `yaml:"buffer_days"`
	Parallelism int    `yaml:"parallelism"`
	Roll        string `yaml:"roll"` // "none", "forward" or "backward"
}

// Gather controls the bar store backfill job.
type Gather struct {
	MaxWorkers int           `yaml:"max_workers"`
	Interval   time.Duration `yaml:"interval"`
}

// Catalog is a user-defined event list.
type Catalog struct {
	Name        string  `yaml:"name"`
	Symbol      string  `yaml:"symbol"`
	Description string  `yaml:"description"`
	Events      []Event `yaml:"events"`
}

// Event is one catalog entry; Date is "YYYY-MM-DD".
type Event struct {
	ID   string `yaml:"id"`
	Date string `yaml:"date"`
}

// Offsets lists the entry and exit choices offered to callers.
type Offsets struct {
	Entry []Offset `yaml:"entry"`
	Exit  []Offset `yaml:"exit"`
}

// Offset is a labelled signed session count.
type Offset struct {
	Label    string `yaml:"label"`
	Sessions int    `yaml:"sessions"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: Storage{Backend: "parquet", DataDir: "data", SQLitePath: "data/eventret.db"},
		Server:  Server{Host: "127.0.0.1", Port: 8080, GRPCPort: 9090},
		Alpaca: Alpaca{
			BaseURL: "https://paper-api.alpaca.markets",
			DataURL: "https://data.alpaca.markets",
			Feed:    "iex",
		},
		Logging: Logging{Level: "info", Format: "json"},
		Provider: Provider{
			Source:          "alpaca",
			Timeout:         15 * time.Second,
			RateLimitPerMin: 200,
			MaxAttempts:     3,
			BaseDelay:       500 * time.Millisecond,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Backtest: Backtest{Symbol: "AAPL", Catalog: "wwdc", BufferDays: 40, Parallelism: 4, Roll: "none"},
		Gather:   Gather{MaxWorkers: 4, Interval: 24 * time.Hour},
	}
}

// Load reads the YAML configuration file at the given path over the
// defaults, then applies environment variable overrides.
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

	return cfg, nil
}

// LoadDefault loads $EVENTRET_CONFIG, or DefaultPath. A missing file at
// DefaultPath is not an error: the defaults plus env overrides are used.
func LoadDefault() (*Config, error) {
	if p := os.Getenv("EVENTRET_CONFIG"); p != "" {
		return Load(p)
	}
	cfg, err := Load(DefaultPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return cfg, err
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("EVENTRET_SOURCE"); v != "" {
		cfg.Provider.Source = v
	}

	if v := os.Getenv("EVENTRET_OFFLINE"); v != "" {
		cfg.Provider.Offline = v == "1" || strings.EqualFold(v, "true")
	}

	// Standard Alpaca env vars take precedence; the SDK reads the same names.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks the enumerations and numeric ranges that the rest of the
// program relies on.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case "", "parquet", "sqlite", "none":
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}
	switch c.Provider.Source {
	case "alpaca", "chart":
	default:
		errs = append(errs, fmt.Errorf("provider.source: unknown source %q", c.Provider.Source))
	}
	if c.Provider.Offline && c.Storage.Backend == "none" {
		errs = append(errs, fmt.Errorf("provider.offline: requires a storage backend"))
	}
	switch c.Backtest.Roll {
	case "", "none", "forward", "backward":
	default:
		errs = append(errs, fmt.Errorf("backtest.roll: unknown policy %q", c.Backtest.Roll))
	}
	if c.Backtest.BufferDays < 0 {
		errs = append(errs, fmt.Errorf("backtest.buffer_days: must not be negative"))
	}
	if c.Backtest.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("backtest.parallelism: must not be negative"))
	}

	errs = append(errs, validateOffsets("offsets.entry", c.Offsets.Entry)...)
	errs = append(errs, validateOffsets("offsets.exit", c.Offsets.Exit)...)

	names := make(map[string]bool)
	for i, cat := range c.Catalogs {
		if cat.Name == "" {
			errs = append(errs, fmt.Errorf("catalogs[%d]: missing name", i))
			continue
		}
		if names[cat.Name] {
			errs = append(errs, fmt.Errorf("catalogs[%d]: duplicate name %q", i, cat.Name))
		}
		names[cat.Name] = true
		for j, ev := range cat.Events {
			if _, err := time.Parse("2006-01-02", ev.Date); err != nil {
				errs = append(errs, fmt.Errorf("catalogs[%d].events[%d]: bad date %q", i, j, ev.Date))
			}
		}
	}

	return errors.Join(errs...)
}

func validateOffsets(field string, offs []Offset) []error {
	var errs []error
	seen := make(map[int]bool)
	for i, o := range offs {
		if o.Label == "" {
			errs = append(errs, fmt.Errorf("%s[%d]: missing label", field, i))
		}
		if seen[o.Sessions] {
			errs = append(errs, fmt.Errorf("%s[%d]: duplicate offset %d", field, i, o.Sessions))
		}
		seen[o.Sessions] = true
	}
	return errs
}
