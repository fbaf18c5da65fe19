package util

import (
	"sort"
	"time"

	"eventret/internal/domain"
)

// TradingCalendar answers session questions for one market from a list of
// known trading days.
type TradingCalendar struct {
	market   domain.Market
	sessions []time.Time // sorted UTC days
}

// NewTradingCalendar creates a TradingCalendar for market from the given
// session days. Order and duplicates do not matter.
func NewTradingCalendar(market domain.Market, days []time.Time) *TradingCalendar {
	seen := make(map[time.Time]struct{}, len(days))
	sessions := make([]time.Time, 0, len(days))
	for _, d := range days {
		d = domain.Day(d)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		sessions = append(sessions, d)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Before(sessions[j]) })
	return &TradingCalendar{market: market, sessions: sessions}
}

// Market returns the market the calendar describes.
func (tc *TradingCalendar) Market() domain.Market { return tc.market }

// Len returns the number of known sessions.
func (tc *TradingCalendar) Len() int { return len(tc.sessions) }

// IsSession reports whether the UTC day of t is a trading session.
func (tc *TradingCalendar) IsSession(t time.Time) bool {
	i := tc.search(t)
	return i < len(tc.sessions) && tc.sessions[i].Equal(domain.Day(t))
}

// NextSession returns the first session on or after the day of t.
func (tc *TradingCalendar) NextSession(t time.Time) (time.Time, bool) {
	i := tc.search(t)
	if i >= len(tc.sessions) {
		return time.Time{}, false
	}
	return tc.sessions[i], true
}

// PrevSession returns the last session on or before the day of t.
func (tc *TradingCalendar) PrevSession(t time.Time) (time.Time, bool) {
	i := tc.search(t)
	if i < len(tc.sessions) && tc.sessions[i].Equal(domain.Day(t)) {
		return tc.sessions[i], true
	}
	if i == 0 {
		return time.Time{}, false
	}
	return tc.sessions[i-1], true
}

func (tc *TradingCalendar) search(t time.Time) int {
	day := domain.Day(t)
	return sort.Search(len(tc.sessions), func(i int) bool {
		return !tc.sessions[i].Before(day)
	})
}
