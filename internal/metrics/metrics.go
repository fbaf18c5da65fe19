// Package metrics exposes Prometheus collectors for backtest runs and price
// fetches. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventret/internal/domain"
)

// Metrics holds all collectors registered by eventret.
type Metrics struct {
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	Fetches       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	CacheLookups  *prometheus.CounterVec
	StaleRuns     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventret_backtest_runs_total",
				Help: "Backtest runs by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "eventret_backtest_run_duration_seconds",
				Help:    "Wall time of a backtest run",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		Fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventret_price_fetches_total",
				Help: "Daily series fetches by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eventret_price_fetch_duration_seconds",
				Help:    "Latency of daily series fetches",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"source"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventret_bar_cache_lookups_total",
				Help: "Local bar store lookups by result",
			},
			[]string{"result"},
		),
		StaleRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eventret_stale_runs_total",
				Help: "Completed runs discarded because a newer run was started",
			},
		),
	}
	reg.MustRegister(m.Runs, m.RunDuration, m.Fetches, m.FetchDuration, m.CacheLookups, m.StaleRuns)
	return m
}

// ObserveRun records one finished backtest run.
func (m *Metrics) ObserveRun(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(domain.Classify(err)).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// ObserveFetch records one upstream series fetch.
func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(source, domain.Classify(err)).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// CacheHit counts a lookup served from the local bar store.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

// CacheMiss counts a lookup that fell through to the upstream source.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// StaleRun counts a completion discarded in favour of a newer generation.
func (m *Metrics) StaleRun() {
	if m == nil {
		return
	}
	m.StaleRuns.Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
