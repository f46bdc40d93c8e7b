package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// CounterSource reads the operating system's per-interface byte counters
// instead of capturing packets. Each poll reports the bytes sent and
// received since the previous poll as a single event.
type CounterSource struct {
	interval time.Duration
	logger   *slog.Logger

	// read returns total (sent+received) bytes keyed by interface name.
	read func(ctx context.Context) (map[string]uint64, error)
}

// NewCounterSource creates a counter-polling source. A non-positive
// interval defaults to one second.
func NewCounterSource(interval time.Duration) *CounterSource {
	if interval <= 0 {
		interval = time.Second
	}
	return &CounterSource{
		interval: interval,
		logger:   slog.Default().With("component", "capture.counters"),
		read:     readInterfaceCounters,
	}
}

// Name implements Source.
func (s *CounterSource) Name() string {
	return "counters"
}

// Open implements Source. AnyDevice sums every interface.
func (s *CounterSource) Open(selector string) (Handle, error) {
	device := normalizeSelector(selector)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counters, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read interface counters: %v", ErrDeviceUnavailable, err)
	}
	start, ok := pick(counters, device)
	if !ok {
		return nil, fmt.Errorf("%w: no such interface %q", ErrDeviceUnavailable, device)
	}

	s.logger.Info("interface counters opened",
		"device", device,
		"interval", s.interval.String(),
	)

	return &counterHandle{
		source: s,
		device: device,
		last:   start,
		done:   make(chan struct{}),
	}, nil
}

func readInterfaceCounters(ctx context.Context) (map[string]uint64, error) {
	stats, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make(map[string]uint64, len(stats))
	for _, st := range stats {
		out[st.Name] = st.BytesSent + st.BytesRecv
	}
	return out, nil
}

func pick(counters map[string]uint64, device string) (uint64, bool) {
	if device == AnyDevice {
		var sum uint64
		for _, v := range counters {
			sum += v
		}
		return sum, true
	}
	v, ok := counters[device]
	return v, ok
}

type counterHandle struct {
	source *CounterSource
	device string
	last   uint64

	closeOnce sync.Once
	done      chan struct{}
}

// ForEachPacket implements Handle.
func (h *counterHandle) ForEachPacket(ctx context.Context, fn PacketFunc) error {
	select {
	case <-h.done:
		return ErrHandleClosed
	default:
	}

	ticker := time.NewTicker(h.source.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.done:
			return nil
		case <-ticker.C:
		}

		counters, err := h.source.read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read counters for %s: %w", h.device, err)
		}
		current, ok := pick(counters, h.device)
		if !ok {
			return fmt.Errorf("interface %q disappeared", h.device)
		}

		// OS counters restart from zero when an interface is recreated;
		// take the new value as the baseline and report nothing for this poll.
		if current < h.last {
			h.source.logger.Warn("interface counters went backwards, rebasing",
				"device", h.device,
				"previous", h.last,
				"current", current,
			)
			h.last = current
			continue
		}

		if delta := current - h.last; delta > 0 {
			fn(int(delta))
		}
		h.last = current
	}
}

// Close implements Handle.
func (h *counterHandle) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}
