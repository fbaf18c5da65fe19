// Package provider supplies daily price series to the backtest engine from
// Alpaca, a chart-style HTTP API, or the local bar store.
package provider

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"eventret/internal/domain"
)

// SeriesProvider fetches the daily close series for symbol over the calendar
// range [from, to]. Network failures wrap domain.ErrTransport and unusable
// payloads wrap domain.ErrMalformedData.
type SeriesProvider interface {
	FetchDailySeries(ctx context.Context, symbol string, from, to time.Time) (domain.PriceSeries, error)
}

// SeriesFromBars turns raw bars into a PriceSeries: sessions are keyed by UTC
// day, sorted ascending, and deduplicated (the later bar wins). Closes that
// are not positive finite numbers are kept as invalid sessions.
func SeriesFromBars(symbol string, bars []domain.Bar) domain.PriceSeries {
	byDay := make(map[time.Time]domain.Session, len(bars))
	for _, b := range bars {
		day := domain.Day(b.Timestamp)
		byDay[day] = domain.Session{
			Date:  day,
			Close: b.Close,
			Valid: b.Close > 0 && !math.IsNaN(b.Close) && !math.IsInf(b.Close, 0),
		}
	}

	sessions := make([]domain.Session, 0, len(byDay))
	for _, s := range byDay {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Date.Before(sessions[j].Date)
	})
	return domain.PriceSeries{Symbol: strings.ToUpper(symbol), Sessions: sessions}
}

// maxSessionGap is the longest run of calendar days without a session that
// still counts as weekends plus holidays rather than missing data.
const maxSessionGap = 7 * 24 * time.Hour

// Covers reports whether series spans the whole calendar range [from, to]
// without holes longer than maxSessionGap.
func Covers(series domain.PriceSeries, from, to time.Time) bool {
	if series.Len() == 0 {
		return false
	}
	end := domain.Day(to)
	if today := domain.Day(time.Now()); end.After(today) {
		end = today
	}
	if series.First().Sub(domain.Day(from)) > maxSessionGap || end.Sub(series.Last()) > maxSessionGap {
		return false
	}
	for i := 1; i < series.Len(); i++ {
		if series.Sessions[i].Date.Sub(series.Sessions[i-1].Date) > maxSessionGap {
			return false
		}
	}
	return true
}

// BarSource is an upstream that can hand back raw bars, which the cache
// writes through to the local store.
type BarSource interface {
	SeriesProvider
	Name() string
	FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error)
}
