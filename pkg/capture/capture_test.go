package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

type fakeReader struct {
	mu      sync.Mutex
	packets []int
	fail    error
	closed  bool
}

func (r *fakeReader) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, gopacket.CaptureInfo{}, errors.New("read on closed handle")
	}
	if len(r.packets) == 0 {
		if r.fail != nil {
			return nil, gopacket.CaptureInfo{}, r.fail
		}
		return nil, gopacket.CaptureInfo{}, pcap.NextErrorNoMorePackets
	}
	size := r.packets[0]
	r.packets = r.packets[1:]
	return make([]byte, 0), gopacket.CaptureInfo{Length: size, CaptureLength: size}, nil
}

func (r *fakeReader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func newFakePcapSource(devices []string, reader *fakeReader) *PcapSource {
	src := NewPcapSource(PcapConfig{})
	src.findDevices = func() ([]string, error) { return devices, nil }
	src.openLive = func(device string, cfg PcapConfig) (packetReader, error) { return reader, nil }
	return src
}

// TestPcapSource_OpenUnknownDevice tests that a missing device maps to ErrDeviceUnavailable.
func TestPcapSource_OpenUnknownDevice(t *testing.T) {
	src := newFakePcapSource([]string{"eth0"}, &fakeReader{})

	_, err := src.Open("wlan9")
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Expected ErrDeviceUnavailable, got %v", err)
	}
}

// TestPcapSource_OpenFailure tests that a libpcap open error maps to ErrDeviceUnavailable.
func TestPcapSource_OpenFailure(t *testing.T) {
	src := NewPcapSource(PcapConfig{})
	src.openLive = func(device string, cfg PcapConfig) (packetReader, error) {
		return nil, errors.New("permission denied")
	}

	_, err := src.Open("")
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Expected ErrDeviceUnavailable, got %v", err)
	}
}

// TestPcapHandle_ForEachPacket tests that every packet size reaches the callback.
func TestPcapHandle_ForEachPacket(t *testing.T) {
	reader := &fakeReader{packets: []int{60, 1500, 0, 40}}
	src := newFakePcapSource([]string{"eth0"}, reader)

	handle, err := src.Open("eth0")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer handle.Close()

	var total, calls int
	err = handle.ForEachPacket(context.Background(), func(size int) {
		total += size
		calls++
	})
	if err != nil {
		t.Fatalf("ForEachPacket failed: %v", err)
	}
	if total != 1600 {
		t.Errorf("Expected 1600 bytes, got %d", total)
	}
	if calls != 3 {
		t.Errorf("Expected 3 callbacks (zero-length skipped), got %d", calls)
	}
}

// TestPcapHandle_ReadError tests that a fatal read error is returned to the caller.
func TestPcapHandle_ReadError(t *testing.T) {
	reader := &fakeReader{packets: []int{100}, fail: errors.New("device went away")}
	src := newFakePcapSource(nil, reader)

	handle, err := src.Open(AnyDevice)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	var total int
	err = handle.ForEachPacket(context.Background(), func(size int) { total += size })
	if err == nil {
		t.Fatal("Expected read error, got nil")
	}
	if total != 100 {
		t.Errorf("Expected bytes before the error to be delivered, got %d", total)
	}
}

// TestPcapHandle_CloseTwice tests that Close is idempotent and fails later reads.
func TestPcapHandle_CloseTwice(t *testing.T) {
	src := newFakePcapSource(nil, &fakeReader{})
	handle, err := src.Open("")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := handle.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := handle.ForEachPacket(context.Background(), func(int) {}); !errors.Is(err, ErrHandleClosed) {
		t.Errorf("Expected ErrHandleClosed, got %v", err)
	}
}

// TestNetFilter tests BPF network filter construction.
func TestNetFilter(t *testing.T) {
	if got := NetFilter("192.168.0.0/16"); got != "net 192.168.0.0/16" {
		t.Errorf("Expected %q, got %q", "net 192.168.0.0/16", got)
	}
	if got := NetFilter(""); got != "" {
		t.Errorf("Expected empty filter, got %q", got)
	}
}

// TestCounterSource_ReportsDeltas tests that polls turn counter growth into events.
func TestCounterSource_ReportsDeltas(t *testing.T) {
	values := []uint64{1000, 1500, 1500, 400, 900}
	var mu sync.Mutex
	idx := 0

	src := NewCounterSource(5 * time.Millisecond)
	src.read = func(ctx context.Context) (map[string]uint64, error) {
		mu.Lock()
		defer mu.Unlock()
		v := values[len(values)-1]
		if idx < len(values) {
			v = values[idx]
			idx++
		}
		return map[string]uint64{"eth0": v, "lo": 7}, nil
	}

	handle, err := src.Open("eth0")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []int
	done := make(chan error, 1)
	go func() {
		done <- handle.ForEachPacket(ctx, func(size int) {
			mu.Lock()
			got = append(got, size)
			mu.Unlock()
		})
	}()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		finished := idx >= len(values)
		mu.Unlock()
		if finished {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for polls")
		case <-time.After(5 * time.Millisecond):
		}
	}
	handle.Close()

	if err := <-done; err != nil {
		t.Fatalf("ForEachPacket failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// 1000 -> 1500 reports 500; 1500 -> 400 rebases; 400 -> 900 reports 500.
	if len(got) != 2 || got[0] != 500 || got[1] != 500 {
		t.Errorf("Expected [500 500], got %v", got)
	}
}

// TestCounterSource_UnknownInterface tests ErrDeviceUnavailable for a missing interface.
func TestCounterSource_UnknownInterface(t *testing.T) {
	src := NewCounterSource(time.Second)
	src.read = func(ctx context.Context) (map[string]uint64, error) {
		return map[string]uint64{"eth0": 1}, nil
	}

	if _, err := src.Open("wg0"); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Expected ErrDeviceUnavailable, got %v", err)
	}
	if _, err := src.Open(""); err != nil {
		t.Fatalf("Expected any-device open to succeed, got %v", err)
	}
}
