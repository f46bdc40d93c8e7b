package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// PcapConfig configures live libpcap capture.
type PcapConfig struct {
	// SnapLen is the maximum number of bytes captured per packet.
	// Packet sizes are taken from the wire length, so a short snapshot
	// does not reduce the counted bytes.
	// Default: 65536
	SnapLen int32

	// Promiscuous enables promiscuous mode on the device.
	// Default: true
	Promiscuous bool

	// ReadTimeout bounds how long a single read waits for a packet. It also
	// bounds how quickly the capture loop notices cancellation.
	// Default: 10ms
	ReadTimeout time.Duration

	// Filter is an optional BPF expression applied to the handle.
	Filter string
}

// DefaultPcapConfig returns the capture settings used when none are given.
func DefaultPcapConfig() PcapConfig {
	return PcapConfig{
		SnapLen:     65536,
		Promiscuous: true,
		ReadTimeout: 10 * time.Millisecond,
	}
}

// NetFilter builds the BPF expression that restricts capture to a network,
// e.g. NetFilter("10.0.0.0/8") == "net 10.0.0.0/8".
func NetFilter(network string) string {
	if network == "" {
		return ""
	}
	return "net " + network
}

// PcapSource opens libpcap handles.
type PcapSource struct {
	config PcapConfig
	logger *slog.Logger

	// findDevices and openLive are replaced in tests.
	findDevices func() ([]string, error)
	openLive    func(device string, cfg PcapConfig) (packetReader, error)
}

// packetReader is the subset of *pcap.Handle used by the capture loop.
type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	Close()
}

// NewPcapSource creates a libpcap capture source.
func NewPcapSource(cfg PcapConfig) *PcapSource {
	def := DefaultPcapConfig()
	if cfg.SnapLen <= 0 {
		cfg.SnapLen = def.SnapLen
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	return &PcapSource{
		config:      cfg,
		logger:      slog.Default().With("component", "capture.pcap"),
		findDevices: findPcapDevices,
		openLive:    openPcapLive,
	}
}

// Name implements Source.
func (s *PcapSource) Name() string {
	return "pcap"
}

// Open implements Source.
func (s *PcapSource) Open(selector string) (Handle, error) {
	device := normalizeSelector(selector)

	if device != AnyDevice {
		devices, err := s.findDevices()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list devices: %v", ErrDeviceUnavailable, err)
		}
		if !containsDevice(devices, device) {
			return nil, fmt.Errorf("%w: no such device %q", ErrDeviceUnavailable, device)
		}
	}

	reader, err := s.openLive(device, s.config)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, device, err)
	}

	s.logger.Info("capture handle opened",
		"device", device,
		"snap_len", s.config.SnapLen,
		"promiscuous", s.config.Promiscuous,
		"filter", filterOrNone(s.config.Filter),
	)

	return &pcapHandle{reader: reader, device: device}, nil
}

func findPcapDevices() ([]string, error) {
	ifaces, err := pcap.FindAllDevs()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		names = append(names, iface.Name)
	}
	return names, nil
}

func openPcapLive(device string, cfg PcapConfig) (packetReader, error) {
	handle, err := pcap.OpenLive(device, cfg.SnapLen, cfg.Promiscuous, cfg.ReadTimeout)
	if err != nil {
		return nil, err
	}
	if cfg.Filter != "" {
		if err := handle.SetBPFFilter(cfg.Filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("invalid filter %q: %w", cfg.Filter, err)
		}
	}
	return handle, nil
}

func containsDevice(devices []string, name string) bool {
	for _, d := range devices {
		if d == name {
			return true
		}
	}
	return false
}

func filterOrNone(filter string) string {
	if filter == "" {
		return "none"
	}
	return filter
}

type pcapHandle struct {
	reader packetReader
	device string

	mu     sync.Mutex
	closed bool
}

// ForEachPacket implements Handle.
func (h *pcapHandle) ForEachPacket(ctx context.Context, fn PacketFunc) error {
	if h.isClosed() {
		return ErrHandleClosed
	}

	for {
		if ctx.Err() != nil || h.isClosed() {
			return nil
		}

		_, ci, err := h.reader.ReadPacketData()
		switch {
		case err == nil:
			if size := packetSize(ci); size > 0 {
				fn(size)
			}
		case errors.Is(err, pcap.NextErrorTimeoutExpired):
			continue
		case errors.Is(err, io.EOF), errors.Is(err, pcap.NextErrorNoMorePackets):
			return nil
		default:
			if h.isClosed() {
				return nil
			}
			return fmt.Errorf("failed to read packet on %s: %w", h.device, err)
		}
	}
}

// packetSize prefers the wire length; the captured length is used when the
// driver does not report one.
func packetSize(ci gopacket.CaptureInfo) int {
	if ci.Length > 0 {
		return ci.Length
	}
	return ci.CaptureLength
}

// Close implements Handle.
func (h *pcapHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.reader.Close()
	return nil
}

func (h *pcapHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
