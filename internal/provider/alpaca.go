package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"eventret/internal/domain"
)

// Compile-time interface check.
var _ SeriesProvider = (*AlpacaProvider)(nil)

// AlpacaProvider fetches split-adjusted daily bars from the Alpaca
// market-data API.
type AlpacaProvider struct {
	client *marketdata.Client
	feed   string
	log    *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider with the given credentials.
// dataURL and feed may be empty to use the SDK defaults.
func NewAlpacaProvider(apiKey, apiSecret, dataURL, feed string) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaProvider{
		client: marketdata.NewClient(opts),
		feed:   feed,
		log:    slog.Default().With("provider", "alpaca"),
	}
}

// Name returns the provider identifier.
func (p *AlpacaProvider) Name() string { return "alpaca" }

// FetchDailySeries fetches daily bars for symbol in [from, to].
func (p *AlpacaProvider) FetchDailySeries(ctx context.Context, symbol string, from, to time.Time) (domain.PriceSeries, error) {
	bars, err := p.FetchBars(ctx, symbol, from, to)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	return SeriesFromBars(symbol, bars), nil
}

// FetchBars fetches daily bars for symbol in [from, to] as domain bars.
func (p *AlpacaProvider) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	symbol = strings.ToUpper(symbol)
	alpacaBars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Start:      domain.Day(from),
		End:        domain.Day(to).Add(24*time.Hour - time.Second),
		Adjustment: marketdata.Split,
		Feed:       marketdata.Feed(p.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %v: %w", symbol, err, domain.ErrTransport)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	p.log.Debug("fetched bars", "symbol", symbol, "from", domain.FormatDay(from), "to", domain.FormatDay(to), "bars", len(bars))
	return bars, nil
}
