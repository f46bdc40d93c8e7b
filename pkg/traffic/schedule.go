package traffic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/trafficwatch/pkg/telemetry/logging"
)

// fixedRate fires at anchor, anchor+period, anchor+2*period and so on.
// Activations are computed from the anchor, not from the previous run, so
// the schedule does not drift when a tick runs long.
type fixedRate struct {
	anchor time.Time
	period time.Duration
}

func (f fixedRate) Next(t time.Time) time.Time {
	if t.Before(f.anchor) {
		return f.anchor
	}
	n := t.Sub(f.anchor)/f.period + 1
	return f.anchor.Add(n * f.period)
}

// Scheduler runs named jobs at fixed rates. A job that is still running
// when its next activation arrives skips that activation. Panics are
// recovered per run.
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	cl := logging.NewCronLogger(logger)
	return &Scheduler{
		// SkipIfStillRunning must wrap Recover: it only releases its slot when
		// the inner job returns normally.
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		entries: make(map[string]cron.EntryID),
		logger:  logger,
	}
}

// Every schedules job to run every period, first at the given time.
func (s *Scheduler) Every(name string, period time.Duration, first time.Time, job func()) error {
	if period <= 0 {
		return fmt.Errorf("invalid period %s for job %q", period, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %q already scheduled", name)
	}
	s.entries[name] = s.cron.Schedule(fixedRate{anchor: first, period: period}, cron.FuncJob(job))

	s.logger.Debug("job scheduled",
		"job", name,
		"period", period,
		"first_run", first,
	)
	return nil
}

// Start begins dispatching. It is a no-op when already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
}

// Stop prevents further activations. The returned context is done once
// the runs in flight have returned.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	return s.cron.Stop()
}

// NextRun returns the next activation of the named job.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}

	entry := s.cron.Entry(id)
	if !entry.Valid() || entry.Next.IsZero() {
		return time.Time{}, false
	}
	return entry.Next, true
}
