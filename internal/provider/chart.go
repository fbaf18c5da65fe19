package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eventret/internal/domain"
)

// Compile-time interface check.
var _ SeriesProvider = (*ChartProvider)(nil)

// DefaultChartURL is the public chart endpoint queried when no base URL is
// configured.
const DefaultChartURL = "https://query1.finance.yahoo.com"

// ChartProvider reads daily closes from a chart-style JSON API that returns
// parallel timestamp and close arrays.
type ChartProvider struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewChartProvider creates a ChartProvider rooted at baseURL.
func NewChartProvider(baseURL string, timeout time.Duration) *ChartProvider {
	if baseURL == "" {
		baseURL = DefaultChartURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChartProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        slog.Default().With("provider", "chart"),
	}
}

// Name returns the provider identifier.
func (p *ChartProvider) Name() string { return "chart" }

// chartResponse is the subset of the chart payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDailySeries requests the daily chart for symbol over [from, to].
func (p *ChartProvider) FetchDailySeries(ctx context.Context, symbol string, from, to time.Time) (domain.PriceSeries, error) {
	bars, err := p.FetchBars(ctx, symbol, from, to)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	return SeriesFromBars(symbol, bars), nil
}

// FetchBars requests the daily chart for symbol over [from, to]. Sessions
// with a null close come back as bars with a zero Close.
func (p *ChartProvider) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(symbol)

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(domain.Day(from).Unix(), 10))
	q.Set("period2", strconv.FormatInt(domain.Day(to).Add(24*time.Hour).Unix(), 10))
	q.Set("interval", "1d")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building chart request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %v: %w", symbol, err, domain.ErrTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("chart %s: status %d: %w", symbol, resp.StatusCode, domain.ErrTransport)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("chart %s: decoding: %v: %w", symbol, err, domain.ErrMalformedData)
	}

	bars, err := parseChart(symbol, &payload)
	if err != nil {
		return nil, err
	}
	p.log.Debug("fetched chart", "symbol", symbol, "sessions", len(bars))
	return bars, nil
}

func parseChart(symbol string, payload *chartResponse) ([]domain.Bar, error) {
	if e := payload.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart %s: %s: %s: %w", symbol, e.Code, e.Description, domain.ErrMalformedData)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: no result: %w", symbol, domain.ErrMalformedData)
	}

	res := payload.Chart.Result[0]
	if res.Timestamp == nil || len(res.Indicators.Quote) == 0 || res.Indicators.Quote[0].Close == nil {
		return nil, fmt.Errorf("chart %s: missing timestamps or closes: %w", symbol, domain.ErrMalformedData)
	}
	closes := res.Indicators.Quote[0].Close
	if len(closes) != len(res.Timestamp) {
		return nil, fmt.Errorf("chart %s: %d timestamps but %d closes: %w",
			symbol, len(res.Timestamp), len(closes), domain.ErrMalformedData)
	}

	bars := make([]domain.Bar, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		bars[i] = domain.Bar{Symbol: symbol, Timestamp: time.Unix(ts, 0).UTC()}
		if c := closes[i]; c != nil {
			bars[i].Close = *c
		}
	}
	return bars, nil
}
