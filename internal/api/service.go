// Package api exposes backtests over gRPC and hosts the HTTP and gRPC
// listeners of eventret-server.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"eventret/internal/backtest"
	"eventret/internal/catalog"
	"eventret/internal/domain"
	"eventret/internal/metrics"
)

// RunRequest selects a catalog (or an ad-hoc event list) and an entry/exit
// pair from the enumerated offsets.
type RunRequest struct {
	Catalog string      `json:"catalog,omitempty"`
	Symbol  string      `json:"symbol,omitempty"`
	Events  []EventView `json:"events,omitempty"`
	Entry   int         `json:"entry"`
	Exit    int         `json:"exit"`
}

// RunResponse is the result of one run. Stale is set when a newer run was
// started before this one finished; its result is not the latest.
type RunResponse struct {
	Result *backtest.Result `json:"result"`
	Stale  bool             `json:"stale,omitempty"`
}

// EventView is an event with its date as "YYYY-MM-DD".
type EventView struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

// CatalogView is the wire form of a catalog.
type CatalogView struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description,omitempty"`
	Events      []EventView `json:"events"`
}

// Defaults fill in fields a RunRequest leaves empty.
type Defaults struct {
	Catalog string
	Symbol  string
}

// Service is the transport-independent backtest front end shared by the
// gRPC and REST servers.
type Service struct {
	bt       *backtest.Backtester
	catalogs *catalog.Registry
	offsets  catalog.Offsets
	tracker  *backtest.Tracker
	defaults Defaults
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewService creates a Service. m may be nil.
func NewService(bt *backtest.Backtester, reg *catalog.Registry, offsets catalog.Offsets, defaults Defaults, m *metrics.Metrics) *Service {
	return &Service{
		bt:       bt,
		catalogs: reg,
		offsets:  offsets,
		tracker:  backtest.NewTracker(),
		defaults: defaults,
		metrics:  m,
		log:      slog.Default().With("component", "service"),
	}
}

// Run resolves req and runs the backtest. Every run gets a new generation;
// if a newer one starts before this run finishes the response is marked
// stale and the latest snapshot keeps the newer outcome.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResponse, error) {
	btReq, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	gen := s.tracker.Begin()
	res, err := s.bt.Run(ctx, btReq)
	stale := errors.Is(s.tracker.Commit(gen, res, err), domain.ErrStaleRun)
	if stale {
		s.metrics.StaleRun()
		s.log.Info("discarding stale run", "generation", gen)
	}
	if err != nil {
		return nil, err
	}
	return &RunResponse{Result: res, Stale: stale}, nil
}

// Latest returns the state of the newest run.
func (s *Service) Latest() backtest.Snapshot {
	return s.tracker.Snapshot()
}

// Catalogs lists the registered catalogs.
func (s *Service) Catalogs() []CatalogView {
	all := s.catalogs.All()
	out := make([]CatalogView, 0, len(all))
	for _, c := range all {
		out = append(out, catalogView(c))
	}
	return out
}

// Offsets returns the enumerated entry and exit offsets.
func (s *Service) Offsets() catalog.Offsets {
	return s.offsets
}

func (s *Service) resolve(req RunRequest) (backtest.Request, error) {
	entry, err := s.offsets.EntryOffset(req.Entry)
	if err != nil {
		return backtest.Request{}, err
	}
	exit, err := s.offsets.ExitOffset(req.Exit)
	if err != nil {
		return backtest.Request{}, err
	}

	out := backtest.Request{Symbol: req.Symbol, Entry: entry, Exit: exit}
	if len(req.Events) > 0 {
		for _, ev := range req.Events {
			d, err := domain.ParseDay(ev.Date)
			if err != nil {
				return backtest.Request{}, fmt.Errorf("event %s: %v: %w", ev.ID, err, domain.ErrBadRequest)
			}
			out.Events = append(out.Events, domain.Event{ID: ev.ID, Date: d})
		}
		if out.Symbol == "" {
			out.Symbol = s.defaults.Symbol
		}
	} else {
		name := req.Catalog
		if name == "" {
			name = s.defaults.Catalog
		}
		c, err := s.catalogs.Get(name)
		if err != nil {
			return backtest.Request{}, err
		}
		out.Events = c.Events
		if out.Symbol == "" {
			out.Symbol = c.Symbol
		}
	}
	if out.Symbol == "" {
		return backtest.Request{}, fmt.Errorf("no symbol given: %w", domain.ErrBadRequest)
	}
	out.Symbol = strings.ToUpper(out.Symbol)
	return out, nil
}

func catalogView(c *catalog.Catalog) CatalogView {
	v := CatalogView{Name: c.Name, Symbol: c.Symbol, Description: c.Description}
	for _, ev := range c.Events {
		v.Events = append(v.Events, EventView{ID: ev.ID, Date: domain.FormatDay(ev.Date)})
	}
	return v
}
