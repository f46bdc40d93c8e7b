package traffic

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/trafficwatch/pkg/alert"
	"mercator-hq/trafficwatch/pkg/capture"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSource returns queued responses, repeating the last one.
type stubSource struct {
	mu        sync.Mutex
	responses []stubResponse
	calls     int
}

type stubResponse struct {
	limits Limits
	err    error
}

func newStubSource(responses ...stubResponse) *stubSource {
	return &stubSource{responses: responses}
}

func (s *stubSource) Fetch(ctx context.Context) (Limits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.responses[min(s.calls, len(s.responses)-1)]
	s.calls++
	return r.limits, r.err
}

func (s *stubSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingSink keeps published alerts and optionally blocks or fails.
type recordingSink struct {
	mu      sync.Mutex
	alerts  []alert.Alert
	err     error
	block   bool
	entered chan struct{}
}

func (s *recordingSink) Publish(ctx context.Context, a alert.Alert) error {
	if s.block {
		select {
		case s.entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) Alerts() []alert.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]alert.Alert(nil), s.alerts...)
}

// fakeHandle emits packets, then fails with err or waits for cancellation.
type fakeHandle struct {
	packets []int
	err     error
	closes  atomic.Int32
	closed  chan struct{}
	once    sync.Once
}

func newFakeHandle(err error, packets ...int) *fakeHandle {
	return &fakeHandle{packets: packets, err: err, closed: make(chan struct{})}
}

func (h *fakeHandle) ForEachPacket(ctx context.Context, fn capture.PacketFunc) error {
	for _, p := range h.packets {
		fn(p)
	}
	if h.err != nil {
		return h.err
	}
	select {
	case <-ctx.Done():
	case <-h.closed:
	}
	return nil
}

func (h *fakeHandle) Close() error {
	h.closes.Add(1)
	h.once.Do(func() { close(h.closed) })
	return nil
}

// fakeCapture hands out queued handles.
type fakeCapture struct {
	mu      sync.Mutex
	handles []*fakeHandle
	openErr error
	opens   int
}

func (c *fakeCapture) Name() string { return "fake" }

func (c *fakeCapture) Open(selector string) (capture.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openErr != nil {
		return nil, c.openErr
	}
	if c.opens >= len(c.handles) {
		return nil, errors.New("no more handles")
	}
	h := c.handles[c.opens]
	c.opens++
	return h, nil
}

func (c *fakeCapture) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

func newTestValidator(t testing.TB, state *State, sink alert.Sink) *Validator {
	f, err := alert.NewFormatter("", alert.EncodingText)
	if err != nil {
		t.Fatalf("Failed to create formatter: %v", err)
	}
	return &Validator{
		state:     state,
		sink:      sink,
		formatter: f,
		iface:     "eth0",
		recorder:  nopRecorder{},
		tracer:    noop.NewTracerProvider().Tracer("test"),
		logger:    discardLogger(),
		now:       time.Now,
	}
}

func newTestRefresher(state *State, source LimitSource) *Refresher {
	return &Refresher{
		state:    state,
		source:   source,
		recorder: nopRecorder{},
		tracer:   noop.NewTracerProvider().Tracer("test"),
		logger:   discardLogger(),
	}
}
