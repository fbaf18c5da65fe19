package backtest

import (
	"sync"

	"eventret/internal/domain"
)

// State is the lifecycle of the most recent run as seen by a front end:
// idle -> loading -> success | error -> (next run) loading.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Snapshot is a point-in-time view of a Tracker.
type Snapshot struct {
	State      State   `json:"state"`
	Generation uint64  `json:"generation"`
	Result     *Result `json:"result,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Tracker hands out monotonically increasing run generations and keeps only
// the outcome of the newest one. A run that finishes after a newer run has
// started is stale and cannot overwrite the newer outcome.
type Tracker struct {
	mu     sync.Mutex
	issued uint64
	snap   Snapshot
}

// NewTracker creates an idle Tracker.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{State: StateIdle}}
}

// Begin starts a new generation and moves the tracker to loading.
func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issued++
	t.snap = Snapshot{State: StateLoading, Generation: t.issued}
	return t.issued
}

// Commit records the outcome of generation gen. It returns ErrStaleRun, and
// changes nothing, when a newer generation has been issued since.
func (t *Tracker) Commit(gen uint64, res *Result, err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.issued {
		return domain.ErrStaleRun
	}
	if err != nil {
		t.snap = Snapshot{State: StateError, Generation: gen, Error: err.Error()}
		return nil
	}
	res.Generation = gen
	t.snap = Snapshot{State: StateSuccess, Generation: gen, Result: res}
	return nil
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Reset returns the tracker to idle. Runs still in flight become stale.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issued++
	t.snap = Snapshot{State: StateIdle}
}
