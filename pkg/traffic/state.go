package traffic

import (
	"fmt"
	"sync"
)

// State is the shared mutable state of one monitor: the byte counter, the
// limits snapshot and the validation baseline. It is created by the
// monitor and handed to the capture loop and both periodic tasks.
type State struct {
	counter *ByteCounter

	mu       sync.RWMutex
	limits   LimitCache
	baseline uint64
}

// NewState returns an empty state: zero total, zero baseline, no limits.
func NewState() *State {
	return &State{counter: NewByteCounter()}
}

// Counter returns the byte counter fed by the capture loop.
func (s *State) Counter() *ByteCounter {
	return s.counter
}

// Limits returns the published limits, if any.
func (s *State) Limits() (Limits, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits.load()
}

// Baseline returns the counter value recorded by the last validation tick.
func (s *State) Baseline() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseline
}

// PublishLimits replaces the limits snapshot as one unit. An invalid pair
// is rejected and the previous snapshot stays in place.
func (s *State) PublishLimits(l Limits) (changed bool, err error) {
	if err := l.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	changed = s.limits.swap(l)
	s.mu.Unlock()

	return changed, nil
}

// window is what one validation tick observed.
type window struct {
	total      uint64
	previous   uint64
	delta      int64
	limits     Limits
	haveLimits bool
}

// advance reads the total, computes the delta against the baseline, moves
// the baseline to the total and reads the limits, all in one critical
// section. A total below the baseline yields ErrCounterAnomaly; the
// baseline is still moved so the next tick starts clean.
func (s *State) advance() (window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := window{
		total:    s.counter.Total(),
		previous: s.baseline,
	}
	w.limits, w.haveLimits = s.limits.load()
	s.baseline = w.total

	if w.total < w.previous {
		return w, fmt.Errorf("%w: total %d is below baseline %d", ErrCounterAnomaly, w.total, w.previous)
	}
	w.delta = int64(w.total - w.previous)
	return w, nil
}
