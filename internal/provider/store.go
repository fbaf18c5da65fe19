package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventret/internal/domain"
	"eventret/internal/metrics"
	"eventret/internal/store"
)

// Compile-time interface checks.
var _ SeriesProvider = (*StoreProvider)(nil)
var _ SeriesProvider = (*CachedProvider)(nil)

// StoreProvider serves series straight from a local BarStore and never goes
// to the network.
type StoreProvider struct {
	store  store.BarStore
	market string
}

// NewStoreProvider creates a StoreProvider reading bars of market from s.
func NewStoreProvider(s store.BarStore, market string) *StoreProvider {
	return &StoreProvider{store: s, market: market}
}

// Name returns the provider identifier.
func (p *StoreProvider) Name() string { return "store" }

// FetchDailySeries reads bars for symbol in [from, to] from the store.
func (p *StoreProvider) FetchDailySeries(ctx context.Context, symbol string, from, to time.Time) (domain.PriceSeries, error) {
	bars, err := p.store.ReadBars(ctx, symbol, p.market, from, to)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("reading %s bars: %v: %w", symbol, err, domain.ErrTransport)
	}
	return SeriesFromBars(symbol, bars), nil
}

// CachedProvider answers from the local BarStore when it already covers the
// requested window and otherwise fetches from upstream, writing the fetched
// bars back to the store.
type CachedProvider struct {
	store    store.BarStore
	market   string
	upstream BarSource
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewCachedProvider wraps upstream with a read-through cache on s. m may be nil.
func NewCachedProvider(s store.BarStore, market string, upstream BarSource, m *metrics.Metrics) *CachedProvider {
	return &CachedProvider{
		store:    s,
		market:   market,
		upstream: upstream,
		metrics:  m,
		log:      slog.Default().With("provider", "cache", "upstream", upstream.Name()),
	}
}

// Name returns the provider identifier.
func (p *CachedProvider) Name() string { return "cache+" + p.upstream.Name() }

// FetchDailySeries returns the series for symbol over [from, to].
func (p *CachedProvider) FetchDailySeries(ctx context.Context, symbol string, from, to time.Time) (domain.PriceSeries, error) {
	bars, err := p.store.ReadBars(ctx, symbol, p.market, from, to)
	if err != nil {
		p.log.Warn("reading cached bars", "symbol", symbol, "error", err)
	} else if series := SeriesFromBars(symbol, bars); Covers(series, from, to) {
		p.metrics.CacheHit()
		return series, nil
	}
	p.metrics.CacheMiss()

	start := time.Now()
	bars, err = p.upstream.FetchBars(ctx, symbol, from, to)
	p.metrics.ObserveFetch(p.upstream.Name(), time.Since(start), err)
	if err != nil {
		return domain.PriceSeries{}, err
	}

	if err := p.store.WriteBars(ctx, p.market, bars); err != nil {
		p.log.Warn("caching bars", "symbol", symbol, "error", err)
	}
	return SeriesFromBars(symbol, bars), nil
}
