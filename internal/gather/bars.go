package gather

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"eventret/internal/backtest"
	"eventret/internal/catalog"
	"eventret/internal/domain"
	"eventret/internal/provider"
	"eventret/internal/store"
)

// Compile-time interface check.
var _ Gatherer = (*BarGatherer)(nil)

// Job is one symbol and calendar range to backfill.
type Job struct {
	Symbol string
	Range  DateRange
}

// Stats summarises one backfill pass.
type Stats struct {
	Jobs    int
	Skipped int // already covered by the store
	Fetched int
	Failed  int
	Bars    int
}

// BarGatherer backfills daily bars for every event window of every catalog
// in a registry.
type BarGatherer struct {
	source     provider.BarSource
	store      store.BarStore
	market     string
	catalogs   *catalog.Registry
	offsets    catalog.Offsets
	bufferDays int
	maxWorkers int
	interval   time.Duration
	progress   *progress
	log        *slog.Logger
}

// Options configures a BarGatherer. Zero values select the defaults.
type Options struct {
	Market     string        // "us"
	BufferDays int           // backtest.DefaultBufferDays
	MaxWorkers int           // 4
	Interval   time.Duration // 0 runs a single pass
	StateDir   string        // where the last-completed marker lives; "" disables it
}

// NewBarGatherer creates a gatherer reading from src and writing to s.
func NewBarGatherer(src provider.BarSource, s store.BarStore, reg *catalog.Registry, offsets catalog.Offsets, opts Options) *BarGatherer {
	if opts.Market == "" {
		opts.Market = string(domain.MarketUS)
	}
	if opts.BufferDays <= 0 {
		opts.BufferDays = backtest.DefaultBufferDays
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 4
	}
	g := &BarGatherer{
		source:     src,
		store:      s,
		market:     opts.Market,
		catalogs:   reg,
		offsets:    offsets,
		bufferDays: opts.BufferDays,
		maxWorkers: opts.MaxWorkers,
		interval:   opts.Interval,
		log:        slog.Default().With("gatherer", "bars"),
	}
	if opts.StateDir != "" {
		g.progress = newProgress(opts.StateDir)
	}
	return g
}

// Name returns the gatherer identifier.
func (g *BarGatherer) Name() string { return "bars" }

// Run performs a backfill pass, then repeats every Interval until ctx is
// cancelled. With a zero Interval it returns after the first pass.
func (g *BarGatherer) Run(ctx context.Context) error {
	for {
		today := domain.FormatDay(time.Now())
		if g.progress != nil && g.progress.IsCompleted(today) {
			g.log.Info("already completed", "date", today)
		} else {
			st, err := g.Backfill(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if g.progress != nil && st.Failed == 0 {
				if err := g.progress.MarkCompleted(today); err != nil {
					g.log.Warn("marking completed", "error", err)
				}
			}
		}

		if g.interval <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(g.interval):
		}
	}
}

// Plan lists the ranges to backfill: one per event, widened to fit the
// extreme entry and exit offsets, with overlapping ranges of the same symbol
// merged.
func (g *BarGatherer) Plan() []Job {
	minEntry, maxExit := 0, 0
	for _, o := range g.offsets.Entry {
		minEntry = min(minEntry, o.Sessions)
	}
	for _, o := range g.offsets.Exit {
		maxExit = max(maxExit, o.Sessions)
	}

	var jobs []Job
	for _, c := range g.catalogs.All() {
		for _, ev := range c.Events {
			from, to := backtest.Window(ev.Date, minEntry, maxExit, g.bufferDays)
			jobs = append(jobs, Job{Symbol: c.Symbol, Range: DateRange{Start: from, End: to}})
		}
	}
	return mergeJobs(jobs)
}

// Backfill runs one pass over Plan. Individual job failures are logged and
// counted, not returned; only cancellation aborts the pass.
func (g *BarGatherer) Backfill(ctx context.Context) (Stats, error) {
	jobs := g.Plan()
	var (
		skipped, fetched, failed, nbars atomic.Int64
		start                           = time.Now()
	)

	g.log.Info("starting backfill", "jobs", len(jobs), "workers", g.maxWorkers)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.maxWorkers)
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			n, err := g.fill(ctx, job)
			switch {
			case err != nil && ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				failed.Add(1)
				g.log.Error("backfill failed",
					"symbol", job.Symbol,
					"range", job.Range.String(),
					"error", err,
				)
			case n == 0:
				skipped.Add(1)
			default:
				fetched.Add(1)
				nbars.Add(int64(n))
			}
			return nil
		})
	}
	err := eg.Wait()

	st := Stats{
		Jobs:    len(jobs),
		Skipped: int(skipped.Load()),
		Fetched: int(fetched.Load()),
		Failed:  int(failed.Load()),
		Bars:    int(nbars.Load()),
	}
	g.log.Info("backfill done",
		"jobs", st.Jobs,
		"skipped", st.Skipped,
		"fetched", st.Fetched,
		"failed", st.Failed,
		"bars", st.Bars,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	if err != nil {
		return st, fmt.Errorf("backfill: %w", err)
	}
	return st, nil
}

// fill fetches and stores one job unless the store already covers it. It
// returns the number of bars written.
func (g *BarGatherer) fill(ctx context.Context, job Job) (int, error) {
	have, err := g.store.ReadBars(ctx, job.Symbol, g.market, job.Range.Start, job.Range.End)
	if err == nil && provider.Covers(provider.SeriesFromBars(job.Symbol, have), job.Range.Start, job.Range.End) {
		return 0, nil
	}

	bars, err := g.source.FetchBars(ctx, job.Symbol, job.Range.Start, job.Range.End)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("%s: no bars returned: %w", job.Symbol, domain.ErrMalformedData)
	}
	if err := g.store.WriteBars(ctx, g.market, bars); err != nil {
		return 0, fmt.Errorf("writing %s bars: %w", job.Symbol, err)
	}
	g.log.Debug("filled", "symbol", job.Symbol, "bars", len(bars))
	return len(bars), nil
}

// mergeJobs sorts jobs by symbol and start, joining ranges that overlap.
func mergeJobs(jobs []Job) []Job {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Symbol != jobs[j].Symbol {
			return jobs[i].Symbol < jobs[j].Symbol
		}
		return jobs[i].Range.Start.Before(jobs[j].Range.Start)
	})
	var out []Job
	for _, j := range jobs {
		if n := len(out); n > 0 && out[n-1].Symbol == j.Symbol && out[n-1].Range.Touches(j.Range) {
			out[n-1].Range = out[n-1].Range.Union(j.Range)
			continue
		}
		out = append(out, j)
	}
	return out
}
