package backtest

import (
	"fmt"
	"math"

	"eventret/internal/domain"
)

// Summarize computes the mean, population standard deviation and win rate of
// the observed returns. Mean and StDev are rounded to 2 decimals, WinRate is
// a whole percentage. Non-finite returns, or a spread too wide to represent,
// yield ErrInvalidPrice.
func Summarize(obs []domain.ReturnObservation) (domain.Summary, error) {
	n := len(obs)
	if n == 0 {
		return domain.Summary{}, domain.ErrEmptyInput
	}

	// Running mean: a plain sum can overflow even when the mean cannot.
	var mean float64
	wins := 0
	for i, o := range obs {
		if !finite(o.Return) {
			return domain.Summary{}, fmt.Errorf("event %s return %v: %w", o.EventID, o.Return, domain.ErrInvalidPrice)
		}
		mean += (o.Return - mean) / float64(i+1)
		if o.Return > 0 {
			wins++
		}
	}

	var sq float64
	for _, o := range obs {
		d := o.Return - mean
		sq += d * d / float64(n)
	}
	stdev := math.Sqrt(sq)
	if !finite(mean) || !finite(stdev) {
		return domain.Summary{}, fmt.Errorf("summary of %d returns overflows: %w", n, domain.ErrInvalidPrice)
	}

	return domain.Summary{
		Mean:    Round(mean, 2),
		StDev:   Round(stdev, 2),
		WinRate: Round(float64(wins)/float64(n)*100, 0),
		Count:   n,
	}, nil
}
