// Package app wires configuration into the stores, providers and engine
// shared by the eventret commands.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"eventret/internal/api"
	"eventret/internal/backtest"
	"eventret/internal/catalog"
	"eventret/internal/config"
	"eventret/internal/domain"
	"eventret/internal/metrics"
	"eventret/internal/provider"
	"eventret/internal/store"
)

// App holds the components built from one Config.
type App struct {
	Config     *config.Config
	Store      store.BarStore // nil when storage.backend is "none"
	Source     provider.BarSource
	Provider   provider.SeriesProvider
	Catalogs   *catalog.Registry
	Offsets    catalog.Offsets
	Backtester *backtest.Backtester
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry

	closers []io.Closer
}

// New validates cfg and builds every component. Call Close when done.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)

	var err error
	if a.Store, err = a.openStore(); err != nil {
		return nil, err
	}
	a.Source = NewSource(cfg)
	switch {
	case cfg.Provider.Offline:
		a.Provider = provider.NewStoreProvider(a.Store, string(domain.MarketUS))
	case a.Store != nil:
		a.Provider = provider.NewCachedProvider(a.Store, string(domain.MarketUS), a.Source, a.Metrics)
	default:
		a.Provider = a.Source
	}

	if a.Catalogs, err = catalog.Load(cfg.Catalogs); err != nil {
		a.Close()
		return nil, err
	}
	a.Offsets = catalog.OffsetsFromConfig(cfg.Offsets)

	roll, err := backtest.ParseRollPolicy(cfg.Backtest.Roll)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Backtester = backtest.NewBacktester(a.Provider, backtest.Options{
		BufferDays:  cfg.Backtest.BufferDays,
		Parallelism: cfg.Backtest.Parallelism,
		Roll:        roll,
		Metrics:     a.Metrics,
		Logger:      slog.Default(),
	})
	return a, nil
}

// NewSource builds the configured upstream behind a Guard.
func NewSource(cfg *config.Config) provider.BarSource {
	var up provider.BarSource
	switch cfg.Provider.Source {
	case "chart":
		up = provider.NewChartProvider(cfg.Provider.ChartURL, cfg.Provider.Timeout)
	default:
		up = provider.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed)
	}
	return provider.NewGuard(up.Name(), up, provider.GuardOptions{
		RateLimitPerMin: cfg.Provider.RateLimitPerMin,
		MaxAttempts:     cfg.Provider.MaxAttempts,
		BaseDelay:       cfg.Provider.BaseDelay,
		BreakerFailures: cfg.Provider.BreakerFailures,
		BreakerCooldown: cfg.Provider.BreakerCooldown,
	})
}

// Service returns the transport-independent front end over the engine.
func (a *App) Service() *api.Service {
	return api.NewService(a.Backtester, a.Catalogs, a.Offsets, api.Defaults{
		Catalog: a.Config.Backtest.Catalog,
		Symbol:  a.Config.Backtest.Symbol,
	}, a.Metrics)
}

func (a *App) openStore() (store.BarStore, error) {
	switch a.Config.Storage.Backend {
	case "none":
		return nil, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(a.Config.Storage.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir: %w", err)
		}
		s, err := store.NewSQLiteStore(a.Config.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		a.closers = append(a.closers, s)
		return s, nil
	default:
		return store.NewParquetStore(a.Config.Storage.DataDir), nil
	}
}

// Close releases the store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
