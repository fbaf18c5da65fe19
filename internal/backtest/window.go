package backtest

import (
	"time"
)

// DefaultBufferDays is the calendar-day margin fetched on each side of an
// event date.
const DefaultBufferDays = 40

// Window returns the [from, to] calendar range to fetch around date so that
// both offsets land inside the series. The buffer grows to two calendar days
// per session when an offset is too large for it.
func Window(date time.Time, entry, exit, bufferDays int) (time.Time, time.Time) {
	if bufferDays <= 0 {
		bufferDays = DefaultBufferDays
	}
	days := bufferDays
	if need := 2 * max(abs(entry), abs(exit)); need > days {
		days = need
	}
	return date.AddDate(0, 0, -days), date.AddDate(0, 0, days)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
