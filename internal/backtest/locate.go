package backtest

import (
	"fmt"
	"sort"
	"time"

	"eventret/internal/domain"
)

// RollPolicy decides what happens when an event date has no session of its
// own, e.g. because it fell on a weekend or market holiday.
type RollPolicy string

const (
	// RollNone fails with ErrDateNotInSeries.
	RollNone RollPolicy = "none"
	// RollForward uses the first session after the event date.
	RollForward RollPolicy = "forward"
	// RollBackward uses the last session before the event date.
	RollBackward RollPolicy = "backward"
)

// maxRollGap bounds how far a rolled event may move. Longer gaps mean the
// series has a hole, not a holiday.
const maxRollGap = 7 * 24 * time.Hour

// ParseRollPolicy maps a config string onto a RollPolicy. The empty string
// means RollNone.
func ParseRollPolicy(s string) (RollPolicy, error) {
	switch RollPolicy(s) {
	case "", RollNone:
		return RollNone, nil
	case RollForward, RollBackward:
		return RollPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown roll policy %q", s)
	}
}

// Locate returns the index of the session whose UTC calendar day equals
// target. Sessions must be sorted ascending.
func Locate(series domain.PriceSeries, target time.Time) (int, error) {
	i := searchDay(series, target)
	if i < series.Len() && domain.SameDay(series.Sessions[i].Date, target) {
		return i, nil
	}
	return -1, fmt.Errorf("%s %s: %w", series.Symbol, domain.FormatDay(target), domain.ErrDateNotInSeries)
}

// LocateRolled is Locate with a fallback for dates that are not sessions.
// With RollNone it behaves exactly like Locate.
func LocateRolled(series domain.PriceSeries, target time.Time, policy RollPolicy) (int, error) {
	idx, err := Locate(series, target)
	if err == nil || policy == RollNone || policy == "" {
		return idx, err
	}

	day := domain.Day(target)
	i := searchDay(series, target)
	switch policy {
	case RollForward:
		if i < series.Len() && domain.Day(series.Sessions[i].Date).Sub(day) <= maxRollGap {
			return i, nil
		}
	case RollBackward:
		if i > 0 && day.Sub(domain.Day(series.Sessions[i-1].Date)) <= maxRollGap {
			return i - 1, nil
		}
	}
	return -1, err
}

// searchDay returns the first index whose session day is not before target.
func searchDay(series domain.PriceSeries, target time.Time) int {
	day := domain.Day(target)
	return sort.Search(series.Len(), func(i int) bool {
		return !domain.Day(series.Sessions[i].Date).Before(day)
	})
}
