package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eventret.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
		"DATA_DIR", "SQLITE_PATH", "LOG_LEVEL", "EVENTRET_SOURCE", "EVENTRET_CONFIG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  backend: sqlite
  data_dir: "/tmp/eventret/data"
  sqlite_path: "/tmp/eventret/bars.db"
server:
  host: "0.0.0.0"
  port: 8081
  grpc_port: 9091
  cors_origins: ["http://localhost:3000"]
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  feed: sip
logging:
  level: debug
  format: text
provider:
  source: chart
  chart_url: "http://chart.local"
  timeout: 5s
  breaker_cooldown: 1m
backtest:
  symbol: MSFT
  catalog: build
  roll: forward
catalogs:
  - name: build
    symbol: msft
    events:
      - {id: "2023", date: "2023-05-23"}
      - {id: "2024", date: "2024-05-21"}
offsets:
  entry:
    - {label: "2 sessions before", sessions: -2}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Storage.SQLitePath != "/tmp/eventret/bars.db" {
		t.Errorf("Storage.SQLitePath = %q", cfg.Storage.SQLitePath)
	}

	// -- Server --
	if cfg.Server.Port != 8081 || cfg.Server.GRPCPort != 9091 {
		t.Errorf("Server ports = %d/%d, want 8081/9091", cfg.Server.Port, cfg.Server.GRPCPort)
	}
	if len(cfg.Server.CORS) != 1 {
		t.Errorf("Server.CORS = %v", cfg.Server.CORS)
	}

	// -- Provider --
	if cfg.Provider.Source != "chart" {
		t.Errorf("Provider.Source = %q, want chart", cfg.Provider.Source)
	}
	if cfg.Provider.Timeout != 5*time.Second {
		t.Errorf("Provider.Timeout = %v, want 5s", cfg.Provider.Timeout)
	}
	if cfg.Provider.BreakerCooldown != time.Minute {
		t.Errorf("Provider.BreakerCooldown = %v, want 1m", cfg.Provider.BreakerCooldown)
	}
	// Unset keys keep their defaults.
	if cfg.Provider.MaxAttempts != 3 {
		t.Errorf("Provider.MaxAttempts = %d, want default 3", cfg.Provider.MaxAttempts)
	}
	if cfg.Backtest.BufferDays != 40 {
		t.Errorf("Backtest.BufferDays = %d, want default 40", cfg.Backtest.BufferDays)
	}

	// -- Backtest --
	if cfg.Backtest.Symbol != "MSFT" || cfg.Backtest.Roll != "forward" {
		t.Errorf("Backtest = %+v", cfg.Backtest)
	}

	// -- Catalogs and offsets --
	if len(cfg.Catalogs) != 1 || len(cfg.Catalogs[0].Events) != 2 {
		t.Fatalf("Catalogs = %+v", cfg.Catalogs)
	}
	if cfg.Catalogs[0].Events[1].Date != "2024-05-21" {
		t.Errorf("event date = %q", cfg.Catalogs[0].Events[1].Date)
	}
	if len(cfg.Offsets.Entry) != 1 || cfg.Offsets.Entry[0].Sessions != -2 {
		t.Errorf("Offsets.Entry = %+v", cfg.Offsets.Entry)
	}
	if len(cfg.Offsets.Exit) != 0 {
		t.Errorf("Offsets.Exit = %+v, want empty", cfg.Offsets.Exit)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("EVENTRET_SOURCE", "chart")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Provider.Source != "chart" {
		t.Errorf("Provider.Source = %q, want chart (env override)", cfg.Provider.Source)
	}

	// The SDK's own variable names win.
	t.Setenv("APCA_API_KEY_ID", "apca-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.APIKey != "apca-key" {
		t.Errorf("Alpaca.APIKey = %q, want apca-key", cfg.Alpaca.APIKey)
	}
}

func TestLoadDefault(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() without a file: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Backtest.Catalog != "wwdc" {
		t.Errorf("Backtest.Catalog = %q, want wwdc", cfg.Backtest.Catalog)
	}

	t.Setenv("EVENTRET_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadDefault(); err == nil {
		t.Error("LoadDefault() with an explicit missing path should fail")
	}
}

func TestLoadMalformed(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server: [not, a, map")
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad source", func(c *Config) { c.Provider.Source = "bloomberg" }, "provider.source"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"offline without store", func(c *Config) {
			c.Provider.Offline = true
			c.Storage.Backend = "none"
		}, "provider.offline"},
		{"bad roll", func(c *Config) { c.Backtest.Roll = "sideways" }, "backtest.roll"},
		{"negative buffer", func(c *Config) { c.Backtest.BufferDays = -1 }, "buffer_days"},
		{"duplicate offset", func(c *Config) {
			c.Offsets.Exit = []Offset{{Label: "a", Sessions: 5}, {Label: "b", Sessions: 5}}
		}, "duplicate offset"},
		{"unlabelled offset", func(c *Config) {
			c.Offsets.Entry = []Offset{{Sessions: -3}}
		}, "missing label"},
		{"bad event date", func(c *Config) {
			c.Catalogs = []Catalog{{Name: "x", Symbol: "X", Events: []Event{{ID: "1", Date: "2024-02-30"}}}}
		}, "bad date"},
		{"duplicate catalog", func(c *Config) {
			c.Catalogs = []Catalog{{Name: "x"}, {Name: "x"}}
		}, "duplicate name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
