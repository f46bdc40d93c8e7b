// Package capture delivers packet-size events from a live network interface.
//
// # Overview
//
// A Source opens a Handle for an interface selector. The Handle drains the
// capture stream and calls a PacketFunc with the byte length of every
// observed packet until it is closed or a fatal capture error occurs.
//
// Two backends are provided:
//
//   - PcapSource: libpcap capture through gopacket (device, snapshot length,
//     promiscuous mode, BPF filter)
//   - CounterSource: polls the operating system interface counters and
//     reports the byte delta of each poll as one event; useful where libpcap
//     or capture privileges are unavailable
//
// # Usage
//
//	src := capture.NewPcapSource(capture.DefaultPcapConfig())
//	handle, err := src.Open("eth0")
//	if err != nil {
//	    return err // wraps capture.ErrDeviceUnavailable
//	}
//	defer handle.Close()
//
//	err = handle.ForEachPacket(ctx, func(size int) {
//	    total.Add(uint64(size))
//	})
//
// # Thread Safety
//
// ForEachPacket must be called from a single goroutine. Close may be called
// from any goroutine and unblocks ForEachPacket; it is safe to call more
// than once.
package capture
