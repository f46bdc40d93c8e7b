package capture

import (
	"context"
	"errors"
)

// AnyDevice selects every interface the backend can observe.
const AnyDevice = "any"

var (
	// ErrDeviceUnavailable is returned by Open when the selected interface
	// does not exist or cannot be opened for capture.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrHandleClosed is returned by ForEachPacket on a handle that was
	// already closed.
	ErrHandleClosed = errors.New("capture handle closed")
)

// PacketFunc receives the byte length of one observed packet.
// It is called on the capture goroutine and must return quickly.
type PacketFunc func(sizeBytes int)

// Source opens capture handles for interface selectors.
type Source interface {
	// Open starts capturing on the interface named by selector.
	// An empty selector is treated as AnyDevice.
	Open(selector string) (Handle, error)

	// Name returns the backend name used in logs and metrics.
	Name() string
}

// Handle is an open capture stream.
type Handle interface {
	// ForEachPacket blocks, calling fn for every packet, until the handle is
	// closed, ctx is cancelled, or a fatal capture error occurs. It returns
	// nil when stopped by Close or ctx, and the capture error otherwise.
	ForEachPacket(ctx context.Context, fn PacketFunc) error

	// Close releases the underlying capture resource.
	Close() error
}

func normalizeSelector(selector string) string {
	if selector == "" {
		return AnyDevice
	}
	return selector
}
