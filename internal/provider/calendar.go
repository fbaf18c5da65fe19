package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"eventret/internal/domain"
	"eventret/internal/util"
)

// CalendarOptions points LoadCalendar at the Alpaca trading API.
type CalendarOptions struct {
	APIKey      string
	APISecret   string
	BaseURL     string
	MaxAttempts int
	BaseDelay   time.Duration
}

// LoadCalendar fetches the US trading calendar for [from, to] from the Alpaca
// trading API, retrying failed requests.
func LoadCalendar(ctx context.Context, opts CalendarOptions, from, to time.Time) (*util.TradingCalendar, error) {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
		BaseURL:   opts.BaseURL,
	})
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var days []alpaca.CalendarDay
	err := util.Retry(ctx, attempts, opts.BaseDelay, func() error {
		var err error
		days, err = client.GetCalendar(alpaca.GetCalendarRequest{
			Start: domain.Day(from),
			End:   domain.Day(to),
		})
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("GetCalendar: %v: %w", err, domain.ErrTransport)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no trading days returned from calendar: %w", domain.ErrMalformedData)
	}

	sessions := make([]time.Time, 0, len(days))
	for _, d := range days {
		t, err := domain.ParseDay(d.Date)
		if err != nil {
			return nil, fmt.Errorf("calendar day %q: %w", d.Date, domain.ErrMalformedData)
		}
		sessions = append(sessions, t)
	}
	return util.NewTradingCalendar(domain.MarketUS, sessions), nil
}
