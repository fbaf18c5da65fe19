package backtest

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"eventret/internal/domain"
)

// PercentReturn computes (exit-entry)/entry*100 rounded to 2 decimals.
func PercentReturn(entry, exit float64) (float64, error) {
	if !validPrice(entry) {
		return 0, fmt.Errorf("entry price %v: %w", entry, domain.ErrInvalidPrice)
	}
	if !validPrice(exit) {
		return 0, fmt.Errorf("exit price %v: %w", exit, domain.ErrInvalidPrice)
	}
	r := (exit - entry) / entry * 100
	if !finite(r) {
		return 0, fmt.Errorf("return from %v to %v is not finite: %w", entry, exit, domain.ErrInvalidPrice)
	}
	return Round(r, 2), nil
}

// Round rounds v half away from zero to the given number of decimal places.
// Infinities and NaN are returned unchanged.
func Round(v float64, places int32) float64 {
	if !finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func validPrice(p float64) bool {
	return p > 0 && finite(p)
}
