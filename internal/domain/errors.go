package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure surfaced by a backtest run matches exactly one
// of these with errors.Is.
var (
	ErrTransport        = errors.New("price source unavailable")
	ErrMalformedData    = errors.New("malformed price data")
	ErrDateNotInSeries  = errors.New("date not in series")
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrEmptyInput       = errors.New("no observations")

	ErrStaleRun       = errors.New("run superseded by a newer run")
	ErrUnknownOffset  = errors.New("unknown offset")
	ErrUnknownCatalog = errors.New("unknown catalog")
	ErrBadRequest     = errors.New("bad request")
)

// EventError ties a failure to the event being processed when it happened.
type EventError struct {
	Event Event
	Err   error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event %s (%s): %v", e.Event.ID, FormatDay(e.Event.Date), e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// Classify returns a stable short code for err, used as a metrics label and
// in API error payloads.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrMalformedData):
		return "malformed_data"
	case errors.Is(err, ErrDateNotInSeries):
		return "date_not_in_series"
	case errors.Is(err, ErrOffsetOutOfRange):
		return "offset_out_of_range"
	case errors.Is(err, ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrStaleRun):
		return "stale"
	case errors.Is(err, ErrUnknownOffset), errors.Is(err, ErrUnknownCatalog), errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "internal"
	}
}
