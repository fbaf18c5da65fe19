// Package gather keeps the local bar store filled for the event windows that
// backtests will ask for, so runs can be served without going upstream.
package gather

import (
	"context"
	"time"

	"eventret/internal/domain"
)

// Gatherer is a long-running backfill process.
type Gatherer interface {
	Name() string
	// Run blocks until ctx is cancelled, or after one pass when no interval
	// is configured.
	Run(ctx context.Context) error
}

// DateRange is an inclusive span of UTC calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Touches reports whether r and o overlap or are adjacent, so that one fetch
// can cover both.
func (r DateRange) Touches(o DateRange) bool {
	return !domain.Day(o.Start).After(domain.Day(r.End).AddDate(0, 0, 1)) &&
		!domain.Day(r.Start).After(domain.Day(o.End).AddDate(0, 0, 1))
}

// Union returns the smallest range covering r and o.
func (r DateRange) Union(o DateRange) DateRange {
	out := r
	if o.Start.Before(out.Start) {
		out.Start = o.Start
	}
	if o.End.After(out.End) {
		out.End = o.End
	}
	return out
}

func (r DateRange) String() string {
	return domain.FormatDay(r.Start) + ".." + domain.FormatDay(r.End)
}
