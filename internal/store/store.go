// Package store defines storage for daily bars and provides Parquet and
// SQLite implementations used as a local price cache.
package store

import (
	"context"
	"time"

	"eventret/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bars.
type BarStore interface {
	// WriteBars persists a batch of bars for the given market, replacing any
	// stored bar for the same symbol and day.
	WriteBars(ctx context.Context, market string, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market whose UTC day
	// falls within [start, end], sorted by timestamp.
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// inDayRange reports whether ts falls on a UTC day within [start, end].
func inDayRange(ts, start, end time.Time) bool {
	day := domain.Day(ts)
	return !day.Before(domain.Day(start)) && !day.After(domain.Day(end))
}
