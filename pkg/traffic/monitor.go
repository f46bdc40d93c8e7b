package traffic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/trafficwatch/pkg/alert"
	"mercator-hq/trafficwatch/pkg/capture"
	"mercator-hq/trafficwatch/pkg/telemetry/logging"
)

// ErrNotRunning is returned by operations that need a Running monitor.
var ErrNotRunning = errors.New("monitor is not running")

const (
	refreshJob  = "refresh"
	validateJob = "validate"
)

// Status is the lifecycle state of a Monitor.
type Status int

const (
	StatusUninitialized Status = iota
	StatusRunning
	StatusDraining
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusRunning:
		return "running"
	case StatusDraining:
		return "draining"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the monitor's timing and capture settings.
type Config struct {
	// Interface is the capture selector, "any" for all interfaces.
	Interface string

	RefreshPeriod    time.Duration
	ValidationPeriod time.Duration

	// ShutdownGrace bounds how long Shutdown waits for in-flight ticks.
	ShutdownGrace time.Duration

	// MaxReopen is how many times a failed capture stream is reopened.
	MaxReopen   int
	ReopenDelay time.Duration

	// LogPackets emits a debug record per captured packet.
	LogPackets bool
}

// Dependencies are the collaborators of a Monitor. Capture, Limits and
// Sink are required.
type Dependencies struct {
	Capture   capture.Source
	Limits    LimitSource
	Sink      alert.Sink
	Formatter *alert.Formatter
	Recorder  Recorder
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

// Snapshot is a point-in-time view of a Monitor for status endpoints.
type Snapshot struct {
	Status         Status            `json:"status"`
	Interface      string            `json:"interface"`
	Capture        string            `json:"capture"`
	StartedAt      time.Time         `json:"started_at,omitzero"`
	Total          uint64            `json:"total_bytes"`
	Baseline       uint64            `json:"baseline_bytes"`
	Limits         *Limits           `json:"limits,omitempty"`
	LastValidation *ValidationResult `json:"last_validation,omitempty"`
	NextValidation time.Time         `json:"next_validation,omitzero"`
	NextRefresh    time.Time         `json:"next_refresh,omitzero"`
	CaptureError   string            `json:"capture_error,omitempty"`
}

// Monitor coordinates the capture loop and the refresh and validation
// tasks over one State.
type Monitor struct {
	cfg       Config
	deps      Dependencies
	state     *State
	refresher *Refresher
	validator *Validator
	scheduler *Scheduler
	logger    *slog.Logger
	now       func() time.Time

	mu          sync.Mutex
	status      Status
	startedAt   time.Time
	handle      capture.Handle
	tickCtx     context.Context
	cancelTicks context.CancelFunc
	stopCapture context.CancelFunc
	captureDone chan struct{}
	captureErr  error

	resultMu   sync.RWMutex
	lastResult *ValidationResult
}

// New validates cfg and deps and returns an Uninitialized monitor.
func New(cfg Config, deps Dependencies) (*Monitor, error) {
	if cfg.RefreshPeriod <= 0 {
		return nil, fmt.Errorf("refresh period must be positive, got %s", cfg.RefreshPeriod)
	}
	if cfg.ValidationPeriod <= 0 {
		return nil, fmt.Errorf("validation period must be positive, got %s", cfg.ValidationPeriod)
	}
	if cfg.MaxReopen < 0 {
		return nil, fmt.Errorf("max reopen must not be negative, got %d", cfg.MaxReopen)
	}
	if deps.Capture == nil {
		return nil, errors.New("capture source is required")
	}
	if deps.Limits == nil {
		return nil, errors.New("limit source is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("alert sink is required")
	}

	if cfg.Interface == "" {
		cfg.Interface = capture.AnyDevice
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = time.Minute
	}
	if deps.Formatter == nil {
		f, err := alert.NewFormatter(alert.DefaultMessage, alert.EncodingText)
		if err != nil {
			return nil, err
		}
		deps.Formatter = f
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("trafficwatch")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	logger := deps.Logger.With("component", "traffic.monitor", "interface", cfg.Interface)
	state := NewState()

	m := &Monitor{
		cfg:       cfg,
		deps:      deps,
		state:     state,
		scheduler: NewScheduler(deps.Logger.With("component", "traffic.scheduler")),
		logger:    logger,
		now:       time.Now,
	}
	m.refresher = &Refresher{
		state:    state,
		source:   deps.Limits,
		recorder: deps.Recorder,
		tracer:   deps.Tracer,
		logger:   deps.Logger.With("component", "traffic.refresh"),
	}
	m.validator = &Validator{
		state:     state,
		sink:      deps.Sink,
		formatter: deps.Formatter,
		iface:     cfg.Interface,
		recorder:  deps.Recorder,
		tracer:    deps.Tracer,
		logger:    deps.Logger.With("component", "traffic.validate"),
		now:       func() time.Time { return m.now() },
	}
	return m, nil
}

// State returns the monitor's shared state.
func (m *Monitor) State() *State {
	return m.state
}

// Status returns the current lifecycle state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start opens the capture source, performs the initial refresh and
// schedules both periodic tasks. A refresh failure at start is logged and
// does not prevent the monitor from running; validation reports limits
// unavailable until a refresh succeeds. ctx is used for the initial
// refresh and as the parent of tick contexts; its cancellation does not
// stop the monitor, Shutdown does.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusUninitialized {
		return ErrAlreadyStarted
	}

	handle, err := m.deps.Capture.Open(m.cfg.Interface)
	if err != nil {
		return fmt.Errorf("failed to open capture on %s: %w", m.cfg.Interface, err)
	}
	m.handle = handle

	base := context.WithoutCancel(ctx)
	m.tickCtx, m.cancelTicks = context.WithCancel(base)
	captureCtx, stopCapture := context.WithCancel(logging.WithInterface(base, m.cfg.Interface))
	m.stopCapture = stopCapture
	m.captureDone = make(chan struct{})

	startedAt := m.now()
	if err := m.refresher.Refresh(logging.WithTask(ctx, refreshJob)); err != nil {
		m.logger.Warn("initial limit refresh failed", "error", err)
	}

	if err := m.schedule(startedAt); err != nil {
		m.cancelTicks()
		stopCapture()
		_ = m.closeHandle()
		return err
	}

	go m.captureLoop(captureCtx, handle)
	m.scheduler.Start()

	m.startedAt = startedAt
	m.status = StatusRunning
	m.logger.Info("traffic monitor started",
		"capture", m.deps.Capture.Name(),
		"refresh_period", m.cfg.RefreshPeriod,
		"validation_period", m.cfg.ValidationPeriod,
	)
	return nil
}

func (m *Monitor) schedule(startedAt time.Time) error {
	if err := m.scheduler.Every(refreshJob, m.cfg.RefreshPeriod, startedAt.Add(m.cfg.RefreshPeriod), m.refreshTick); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	if err := m.scheduler.Every(validateJob, m.cfg.ValidationPeriod, startedAt.Add(m.cfg.ValidationPeriod), m.validateTick); err != nil {
		return fmt.Errorf("failed to schedule validation: %w", err)
	}
	return nil
}

func (m *Monitor) refreshTick() {
	_ = m.refresher.Refresh(logging.WithTask(m.tickCtx, refreshJob))
}

func (m *Monitor) validateTick() {
	result := m.validator.Validate(logging.WithTask(m.tickCtx, validateJob))

	m.resultMu.Lock()
	m.lastResult = &result
	m.resultMu.Unlock()
}

// RefreshNow performs an on-demand refresh, serialized with the scheduled
// one.
func (m *Monitor) RefreshNow(ctx context.Context) error {
	if m.Status() != StatusRunning {
		return ErrNotRunning
	}
	return m.refresher.Refresh(logging.WithTask(ctx, refreshJob))
}

// Shutdown stops scheduling, waits up to the shutdown grace period (or
// until ctx is done) for in-flight ticks, cancels them if they are still
// running and closes the capture handle. It is safe to call more than
// once; later calls return nil.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	switch m.status {
	case StatusUninitialized:
		m.status = StatusStopped
		m.mu.Unlock()
		return nil
	case StatusDraining, StatusStopped:
		m.mu.Unlock()
		return nil
	}
	m.status = StatusDraining
	m.mu.Unlock()

	m.logger.Info("traffic monitor draining", "grace", m.cfg.ShutdownGrace)

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownGrace)
	defer cancel()

	var errs []error
	select {
	case <-m.scheduler.Stop().Done():
	case <-waitCtx.Done():
		m.logger.Warn("ticks still running after grace period, cancelling")
		errs = append(errs, ErrShutdownTimeout)
	}
	m.cancelTicks()
	m.stopCapture()

	m.mu.Lock()
	if err := m.closeHandle(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close capture: %w", err))
	}
	m.mu.Unlock()

	select {
	case <-m.captureDone:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}

	m.mu.Lock()
	m.status = StatusStopped
	m.mu.Unlock()

	m.logger.Info("traffic monitor stopped", "total_bytes", m.state.Counter().Total())
	return errors.Join(errs...)
}

// closeHandle closes the current capture handle at most once. Callers
// hold m.mu.
func (m *Monitor) closeHandle() error {
	if m.handle == nil {
		return nil
	}
	err := m.handle.Close()
	m.handle = nil
	return err
}

func (m *Monitor) onPacket(sizeBytes int) {
	if !m.cfg.LogPackets {
		m.state.Counter().OnPacket(sizeBytes)
		return
	}
	previous := m.state.Counter().Total()
	m.state.Counter().OnPacket(sizeBytes)
	m.logger.Debug("packet captured",
		"size", sizeBytes,
		"previous_total", previous,
		"total", m.state.Counter().Total(),
	)
}

// captureLoop drains handle until ctx is cancelled or the stream ends.
// A failed stream is reopened up to MaxReopen times; the counter keeps
// its value across reopens.
func (m *Monitor) captureLoop(ctx context.Context, handle capture.Handle) {
	defer close(m.captureDone)

	for attempt := 1; ; attempt++ {
		err := handle.ForEachPacket(ctx, m.onPacket)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			m.logger.Info("capture stream ended")
			return
		}

		m.captureFailed(ctx, &CaptureError{Interface: m.cfg.Interface, Attempt: attempt, Err: err})
		if attempt > m.cfg.MaxReopen {
			m.logger.ErrorContext(ctx, "capture stopped, reopen attempts exhausted", "max_reopen", m.cfg.MaxReopen)
			return
		}

		if handle = m.reopen(ctx, attempt); handle == nil {
			return
		}
	}
}

func (m *Monitor) captureFailed(ctx context.Context, err *CaptureError) {
	m.deps.Recorder.RecordCaptureError()
	m.logger.ErrorContext(ctx, "capture failed", "attempt", err.Attempt, "error", err.Err)

	m.mu.Lock()
	m.captureErr = err
	m.mu.Unlock()
}

func (m *Monitor) reopen(ctx context.Context, attempt int) capture.Handle {
	if m.cfg.ReopenDelay > 0 {
		timer := time.NewTimer(m.cfg.ReopenDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusRunning || ctx.Err() != nil {
		return nil
	}
	if err := m.closeHandle(); err != nil {
		m.logger.Warn("failed to close failed capture handle", "error", err)
	}

	handle, err := m.deps.Capture.Open(m.cfg.Interface)
	if err != nil {
		m.deps.Recorder.RecordCaptureError()
		m.captureErr = &CaptureError{Interface: m.cfg.Interface, Attempt: attempt + 1, Err: err}
		m.logger.Error("failed to reopen capture", "error", err)
		return nil
	}
	m.handle = handle
	m.logger.Info("capture reopened", "attempt", attempt)
	return handle
}

// CaptureErr returns the most recent capture failure, if any.
func (m *Monitor) CaptureErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captureErr
}

// LastValidation returns the result of the most recent scheduled tick.
func (m *Monitor) LastValidation() (ValidationResult, bool) {
	m.resultMu.RLock()
	defer m.resultMu.RUnlock()
	if m.lastResult == nil {
		return ValidationResult{}, false
	}
	return *m.lastResult, true
}

// Snapshot returns the monitor's current view.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	snap := Snapshot{
		Status:    m.status,
		Interface: m.cfg.Interface,
		Capture:   m.deps.Capture.Name(),
		StartedAt: m.startedAt,
	}
	if m.captureErr != nil {
		snap.CaptureError = m.captureErr.Error()
	}
	m.mu.Unlock()

	snap.Total = m.state.Counter().Total()
	snap.Baseline = m.state.Baseline()
	if l, ok := m.state.Limits(); ok {
		snap.Limits = &l
	}
	if r, ok := m.LastValidation(); ok {
		snap.LastValidation = &r
	}
	if snap.Status == StatusRunning {
		snap.NextValidation, _ = m.scheduler.NextRun(validateJob)
		snap.NextRefresh, _ = m.scheduler.NextRun(refreshJob)
	}
	return snap
}
