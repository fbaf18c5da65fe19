package backtest

import (
	"fmt"

	"eventret/internal/domain"
)

// Resolve returns anchor+offset when it addresses a session in series. It
// never clamps: an index outside [0, len) is ErrOffsetOutOfRange.
func Resolve(series domain.PriceSeries, anchor, offset int) (int, error) {
	n := series.Len()
	idx := anchor + offset
	if anchor < 0 || anchor >= n || idx < 0 || idx >= n {
		return -1, fmt.Errorf("session %d%+d outside [0,%d): %w", anchor, offset, n, domain.ErrOffsetOutOfRange)
	}
	return idx, nil
}

// closeAt reads the close of session idx, rejecting missing or non-positive
// prices.
func closeAt(series domain.PriceSeries, idx int) (float64, error) {
	s := series.Sessions[idx]
	if !s.Valid || !validPrice(s.Close) {
		return 0, fmt.Errorf("close on %s: %w", domain.FormatDay(s.Date), domain.ErrInvalidPrice)
	}
	return s.Close, nil
}
