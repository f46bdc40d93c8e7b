package traffic

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mercator-hq/trafficwatch/pkg/capture"
)

func newTestMonitor(t *testing.T, cfg Config, src *fakeCapture, limits LimitSource, sink *recordingSink) *Monitor {
	t.Helper()

	if cfg.RefreshPeriod == 0 {
		cfg.RefreshPeriod = time.Hour
	}
	if cfg.ValidationPeriod == 0 {
		cfg.ValidationPeriod = time.Hour
	}
	m, err := New(cfg, Dependencies{
		Capture: src,
		Limits:  limits,
		Sink:    sink,
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatalf("Failed to create monitor: %v", err)
	}
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestNew_Validation(t *testing.T) {
	src := &fakeCapture{}
	limits := newStubSource(stubResponse{limits: Limits{Min: 1, Max: 2}})
	sink := &recordingSink{}

	tests := []struct {
		name string
		cfg  Config
		deps Dependencies
	}{
		{
			name: "zero refresh period",
			cfg:  Config{ValidationPeriod: time.Second},
			deps: Dependencies{Capture: src, Limits: limits, Sink: sink},
		},
		{
			name: "zero validation period",
			cfg:  Config{RefreshPeriod: time.Second},
			deps: Dependencies{Capture: src, Limits: limits, Sink: sink},
		},
		{
			name: "missing capture",
			cfg:  Config{RefreshPeriod: time.Second, ValidationPeriod: time.Second},
			deps: Dependencies{Limits: limits, Sink: sink},
		},
		{
			name: "missing sink",
			cfg:  Config{RefreshPeriod: time.Second, ValidationPeriod: time.Second},
			deps: Dependencies{Capture: src, Limits: limits},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, tt.deps); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

// TestMonitor_StartOpenFailure tests that a failed open leaves the monitor Uninitialized.
func TestMonitor_StartOpenFailure(t *testing.T) {
	src := &fakeCapture{openErr: fmt.Errorf("%w: eth9", capture.ErrDeviceUnavailable)}
	limits := newStubSource(stubResponse{limits: Limits{Min: 1, Max: 2}})
	m := newTestMonitor(t, Config{Interface: "eth9"}, src, limits, &recordingSink{})

	err := m.Start(context.Background())
	if !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Fatalf("Expected ErrDeviceUnavailable, got %v", err)
	}
	if m.Status() != StatusUninitialized {
		t.Errorf("Expected status %s, got %s", StatusUninitialized, m.Status())
	}
	if limits.Calls() != 0 {
		t.Errorf("Expected no refresh before capture opens, got %d", limits.Calls())
	}
}

// TestMonitor_Lifecycle tests start, initial refresh, counting and shutdown.
func TestMonitor_Lifecycle(t *testing.T) {
	handle := newFakeHandle(nil, 100, 200, 300)
	src := &fakeCapture{handles: []*fakeHandle{handle}}
	limits := newStubSource(stubResponse{limits: Limits{Min: 2048, Max: 4096}})
	m := newTestMonitor(t, Config{Interface: "eth0"}, src, limits, &recordingSink{})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}
	if m.Status() != StatusRunning {
		t.Errorf("Expected status %s, got %s", StatusRunning, m.Status())
	}
	if limits.Calls() != 1 {
		t.Errorf("Expected 1 initial refresh, got %d", limits.Calls())
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}

	waitFor(t, "packets to be counted", func() bool {
		return m.State().Counter().Total() == 600
	})

	snap := m.Snapshot()
	if snap.Limits == nil || *snap.Limits != (Limits{Min: 2048, Max: 4096}) {
		t.Errorf("Expected limits [2048, 4096] in snapshot, got %v", snap.Limits)
	}
	if snap.NextValidation.IsZero() {
		t.Error("Expected next validation time in snapshot")
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Failed to shut down: %v", err)
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Second shutdown failed: %v", err)
	}

	if m.Status() != StatusStopped {
		t.Errorf("Expected status %s, got %s", StatusStopped, m.Status())
	}
	if handle.closes.Load() != 1 {
		t.Errorf("Expected capture closed once, got %d", handle.closes.Load())
	}
	if err := m.RefreshNow(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}
}

// TestMonitor_ScheduledValidation tests that the validation task alerts on
// an out-of-range window.
func TestMonitor_ScheduledValidation(t *testing.T) {
	handle := newFakeHandle(nil, 5000)
	src := &fakeCapture{handles: []*fakeHandle{handle}}
	limits := newStubSource(stubResponse{limits: Limits{Min: 2048, Max: 4096}})
	sink := &recordingSink{}
	m := newTestMonitor(t, Config{ValidationPeriod: 30 * time.Millisecond}, src, limits, sink)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}
	defer m.Shutdown(context.Background())

	waitFor(t, "an alert", func() bool {
		return len(sink.Alerts()) > 0
	})

	a := sink.Alerts()[0]
	if a.Delta != 5000 || a.Min != 2048 || a.Max != 4096 {
		t.Errorf("Expected alert (5000, 2048, 4096), got (%d, %d, %d)", a.Delta, a.Min, a.Max)
	}

	waitFor(t, "an in-range tick", func() bool {
		r, ok := m.LastValidation()
		return ok && r.Outcome == OutcomeOutOfRange && r.Delta == 0
	})
}

// TestMonitor_ShutdownForcesCancel tests that a tick stuck past the grace
// period is cancelled.
func TestMonitor_ShutdownForcesCancel(t *testing.T) {
	handle := newFakeHandle(nil, 10)
	src := &fakeCapture{handles: []*fakeHandle{handle}}
	limits := newStubSource(stubResponse{limits: Limits{Min: 2048, Max: 4096}})
	sink := &recordingSink{block: true, entered: make(chan struct{}, 1)}
	m := newTestMonitor(t, Config{
		ValidationPeriod: 20 * time.Millisecond,
		ShutdownGrace:    50 * time.Millisecond,
	}, src, limits, sink)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}

	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the validation tick")
	}

	err := m.Shutdown(context.Background())
	if !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("Expected ErrShutdownTimeout, got %v", err)
	}
	if m.Status() != StatusStopped {
		t.Errorf("Expected status %s, got %s", StatusStopped, m.Status())
	}
	if handle.closes.Load() != 1 {
		t.Errorf("Expected capture closed once, got %d", handle.closes.Load())
	}
}

// TestMonitor_CaptureReopen tests that a failed stream is reopened without
// resetting the counter.
func TestMonitor_CaptureReopen(t *testing.T) {
	first := newFakeHandle(errors.New("read failed"), 1000)
	second := newFakeHandle(nil, 500)
	src := &fakeCapture{handles: []*fakeHandle{first, second}}
	limits := newStubSource(stubResponse{limits: Limits{Min: 0, Max: 1 << 20}})
	m := newTestMonitor(t, Config{MaxReopen: 1}, src, limits, &recordingSink{})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}
	defer m.Shutdown(context.Background())

	waitFor(t, "the reopened stream", func() bool {
		return m.State().Counter().Total() == 1500
	})

	if src.Opens() != 2 {
		t.Errorf("Expected 2 opens, got %d", src.Opens())
	}
	if first.closes.Load() != 1 {
		t.Errorf("Expected failed handle closed once, got %d", first.closes.Load())
	}

	var captureErr *CaptureError
	if !errors.As(m.CaptureErr(), &captureErr) {
		t.Fatalf("Expected *CaptureError, got %v", m.CaptureErr())
	}
	if captureErr.Attempt != 1 {
		t.Errorf("Expected attempt 1, got %d", captureErr.Attempt)
	}
}

// TestMonitor_CaptureGivesUp tests that reopening stops after MaxReopen.
func TestMonitor_CaptureGivesUp(t *testing.T) {
	first := newFakeHandle(errors.New("read failed"))
	src := &fakeCapture{handles: []*fakeHandle{first}}
	limits := newStubSource(stubResponse{limits: Limits{Min: 0, Max: 10}})
	m := newTestMonitor(t, Config{MaxReopen: 0}, src, limits, &recordingSink{})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}

	waitFor(t, "the capture failure", func() bool {
		return m.CaptureErr() != nil
	})

	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("Failed to shut down: %v", err)
	}
	if src.Opens() != 1 {
		t.Errorf("Expected 1 open, got %d", src.Opens())
	}
	if first.closes.Load() != 1 {
		t.Errorf("Expected handle closed once, got %d", first.closes.Load())
	}
}
