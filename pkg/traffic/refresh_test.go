package traffic

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestRefresher_Refresh(t *testing.T) {
	state := NewState()
	source := newStubSource(
		stubResponse{limits: Limits{Min: 2048, Max: 4096}},
		stubResponse{err: fmt.Errorf("no min record: %w", ErrLimitsUnavailable)},
		stubResponse{limits: Limits{Min: 4096, Max: 2048}},
		stubResponse{err: errors.New("connection refused")},
		stubResponse{limits: Limits{Min: 100, Max: 200}},
	)
	r := newTestRefresher(state, source)
	ctx := context.Background()

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Expected first refresh to succeed, got %v", err)
	}

	if err := r.Refresh(ctx); !errors.Is(err, ErrLimitsUnavailable) {
		t.Errorf("Expected ErrLimitsUnavailable, got %v", err)
	}
	if err := r.Refresh(ctx); !errors.Is(err, ErrInvalidLimitsRange) {
		t.Errorf("Expected ErrInvalidLimitsRange, got %v", err)
	}
	if err := r.Refresh(ctx); err == nil {
		t.Error("Expected transport error")
	}

	l, ok := state.Limits()
	if !ok || l != (Limits{Min: 2048, Max: 4096}) {
		t.Errorf("Expected previous limits [2048, 4096] to survive failures, got %s", l)
	}

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Expected last refresh to succeed, got %v", err)
	}
	l, _ = state.Limits()
	if l != (Limits{Min: 100, Max: 200}) {
		t.Errorf("Expected [100, 200], got %s", l)
	}
}

// TestRefresher_Idempotent tests that identical source data yields an equal snapshot.
func TestRefresher_Idempotent(t *testing.T) {
	state := NewState()
	r := newTestRefresher(state, newStubSource(stubResponse{limits: Limits{Min: 1, Max: 2}}))

	r.Refresh(context.Background())
	first, _ := state.Limits()
	r.Refresh(context.Background())
	second, _ := state.Limits()

	if first != second {
		t.Errorf("Expected equal snapshots, got %s and %s", first, second)
	}
}

// TestRefresher_NoLimitsNoAlert tests that a store that never yields limits
// never causes an alert.
func TestRefresher_NoLimitsNoAlert(t *testing.T) {
	state := NewState()
	r := newTestRefresher(state, newStubSource(stubResponse{err: ErrLimitsUnavailable}))
	sink := &recordingSink{}
	v := newTestValidator(t, state, sink)

	for i := 0; i < 3; i++ {
		r.Refresh(context.Background())
		state.Counter().OnPacket(1 << 20)
		if result := v.Validate(context.Background()); result.Outcome != OutcomeLimitsUnavailable {
			t.Errorf("Expected outcome %s, got %s", OutcomeLimitsUnavailable, result.Outcome)
		}
	}

	if len(sink.Alerts()) != 0 {
		t.Errorf("Expected no alerts, got %d", len(sink.Alerts()))
	}
}
