// Package backtest measures event-relative returns: it resolves each event
// date to a trading session, steps entry and exit offsets through the session
// sequence, and aggregates the resulting percentage returns.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"eventret/internal/domain"
	"eventret/internal/metrics"
	"eventret/internal/provider"
)

// Request describes one backtest: the events to study and the entry/exit
// offsets measured from each event session.
type Request struct {
	Symbol string
	Events []domain.Event
	Entry  domain.SessionOffset
	Exit   domain.SessionOffset
}

// Result is the output of a successful run. Observations follow the order of
// Request.Events.
type Result struct {
	RunID        string                     `json:"runId"`
	Generation   uint64                     `json:"generation,omitempty"`
	Symbol       string                     `json:"symbol"`
	Entry        domain.SessionOffset       `json:"entry"`
	Exit         domain.SessionOffset       `json:"exit"`
	Observations []domain.ReturnObservation `json:"observations"`
	Summary      domain.Summary             `json:"summary"`
	Rows         []domain.SummaryRow        `json:"rows"`
	StartedAt    time.Time                  `json:"startedAt"`
	FinishedAt   time.Time                  `json:"finishedAt"`
}

// Options configures a Backtester. Zero values select the defaults.
type Options struct {
	BufferDays  int        // calendar days fetched around each event (40)
	Parallelism int        // concurrent event fetches (4)
	Roll        RollPolicy // handling of event dates that are not sessions (none)
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Backtester runs event backtests against a SeriesProvider.
type Backtester struct {
	provider    provider.SeriesProvider
	bufferDays  int
	parallelism int
	roll        RollPolicy
	metrics     *metrics.Metrics
	log         *slog.Logger
}

// NewBacktester creates a Backtester that reads price series from p.
func NewBacktester(p provider.SeriesProvider, opts Options) *Backtester {
	if opts.BufferDays <= 0 {
		opts.BufferDays = DefaultBufferDays
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	if opts.Roll == "" {
		opts.Roll = RollNone
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Backtester{
		provider:    p,
		bufferDays:  opts.BufferDays,
		parallelism: opts.Parallelism,
		roll:        opts.Roll,
		metrics:     opts.Metrics,
		log:         opts.Logger.With("component", "backtest"),
	}
}

// Run computes one return per event and the summary over all of them. The
// first event that fails aborts the run; no partial result is returned.
// Event fetches run concurrently but observations keep the input order.
func (bt *Backtester) Run(ctx context.Context, req Request) (res *Result, err error) {
	started := time.Now()
	runID := uuid.NewString()
	log := bt.log.With("run", runID, "symbol", req.Symbol, "entry", req.Entry.Sessions, "exit", req.Exit.Sessions)

	defer func() {
		bt.metrics.ObserveRun(time.Since(started), err)
		if err != nil {
			log.Warn("backtest failed", "error", err, "kind", domain.Classify(err))
		}
	}()

	if len(req.Events) == 0 {
		return nil, fmt.Errorf("backtest %s: %w", req.Symbol, domain.ErrEmptyInput)
	}

	obs := make([]domain.ReturnObservation, len(req.Events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bt.parallelism)
	for i, ev := range req.Events {
		g.Go(func() error {
			ret, err := bt.observe(gctx, req, ev)
			if err != nil {
				return &domain.EventError{Event: ev, Err: err}
			}
			obs[i] = domain.ReturnObservation{EventID: ev.ID, Return: ret}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary, err := Summarize(obs)
	if err != nil {
		return nil, err
	}

	res = &Result{
		RunID:        runID,
		Symbol:       strings.ToUpper(req.Symbol),
		Entry:        req.Entry,
		Exit:         req.Exit,
		Observations: obs,
		Summary:      summary,
		Rows:         domain.Rows(obs, summary),
		StartedAt:    started,
		FinishedAt:   time.Now(),
	}
	log.Info("backtest complete",
		"events", len(obs),
		"mean", summary.Mean,
		"stdev", summary.StDev,
		"winRate", summary.WinRate,
		"elapsed", res.FinishedAt.Sub(started).Round(time.Millisecond),
	)
	return res, nil
}

// observe fetches the window around one event and returns its rounded
// percentage return.
func (bt *Backtester) observe(ctx context.Context, req Request, ev domain.Event) (float64, error) {
	from, to := Window(ev.Date, req.Entry.Sessions, req.Exit.Sessions, bt.bufferDays)
	series, err := bt.provider.FetchDailySeries(ctx, req.Symbol, from, to)
	if err != nil {
		return 0, err
	}

	anchor, err := LocateRolled(series, ev.Date, bt.roll)
	if err != nil {
		return 0, err
	}
	entryIdx, err := Resolve(series, anchor, req.Entry.Sessions)
	if err != nil {
		return 0, fmt.Errorf("entry: %w", err)
	}
	exitIdx, err := Resolve(series, anchor, req.Exit.Sessions)
	if err != nil {
		return 0, fmt.Errorf("exit: %w", err)
	}

	entry, err := closeAt(series, entryIdx)
	if err != nil {
		return 0, fmt.Errorf("entry: %w", err)
	}
	exit, err := closeAt(series, exitIdx)
	if err != nil {
		return 0, fmt.Errorf("exit: %w", err)
	}

	ret, err := PercentReturn(entry, exit)
	if err != nil {
		return 0, err
	}
	bt.log.Debug("event observed",
		"event", ev.ID,
		"session", domain.FormatDay(series.Sessions[anchor].Date),
		"entry", entry,
		"exit", exit,
		"return", ret,
	)
	return ret, nil
}
