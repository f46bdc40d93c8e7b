package traffic

import (
	"errors"
	"fmt"
)

var (
	// ErrCounterAnomaly means the byte total went below the validation
	// baseline, which only a counter reset or wrap can cause.
	ErrCounterAnomaly = errors.New("traffic counter anomaly")

	// ErrAlreadyStarted is returned by Start on a monitor that left the
	// Uninitialized state.
	ErrAlreadyStarted = errors.New("monitor already started")

	// ErrShutdownTimeout is returned by Shutdown when in-flight ticks had to
	// be cancelled after the grace period.
	ErrShutdownTimeout = errors.New("monitor shutdown grace period exceeded")
)

// CaptureError is a fatal error of the capture loop.
type CaptureError struct {
	Interface string
	Attempt   int
	Err       error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture on %s failed (attempt %d): %v", e.Interface, e.Attempt, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
