package traffic

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrLimitsUnavailable means the store does not hold exactly one min and
	// one max record for the latest effective period.
	ErrLimitsUnavailable = errors.New("traffic limits unavailable")

	// ErrInvalidLimitsRange means the fetched min exceeds the fetched max,
	// or a bound is negative.
	ErrInvalidLimitsRange = errors.New("invalid traffic limits range")
)

// Limits is an immutable [Min, Max] byte envelope for one validation window.
type Limits struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// NewLimits validates and returns a Limits value.
func NewLimits(min, max int64) (Limits, error) {
	l := Limits{Min: min, Max: max}
	if err := l.Validate(); err != nil {
		return Limits{}, err
	}
	return l, nil
}

// Validate reports ErrInvalidLimitsRange unless 0 <= Min <= Max.
func (l Limits) Validate() error {
	if l.Min < 0 || l.Max < 0 {
		return fmt.Errorf("%w: negative bound in [%d, %d]", ErrInvalidLimitsRange, l.Min, l.Max)
	}
	if l.Min > l.Max {
		return fmt.Errorf("%w: min %d exceeds max %d", ErrInvalidLimitsRange, l.Min, l.Max)
	}
	return nil
}

// Contains reports whether delta lies inside the envelope, bounds included.
func (l Limits) Contains(delta int64) bool {
	return delta >= l.Min && delta <= l.Max
}

func (l Limits) String() string {
	return fmt.Sprintf("[%d, %d]", l.Min, l.Max)
}

// LimitSource supplies the current limits on demand.
type LimitSource interface {
	// Fetch returns the limits for the latest effective period. It fails
	// with ErrLimitsUnavailable or ErrInvalidLimitsRange (possibly wrapped),
	// or with a transport error.
	Fetch(ctx context.Context) (Limits, error)
}

// LimitCache holds the published limits snapshot. It has no lock of its
// own; State guards it together with the validation baseline.
type LimitCache struct {
	current *Limits
}

func (c *LimitCache) load() (Limits, bool) {
	if c.current == nil {
		return Limits{}, false
	}
	return *c.current, true
}

// swap replaces the snapshot and reports whether the value changed.
func (c *LimitCache) swap(l Limits) bool {
	changed := c.current == nil || *c.current != l
	next := l
	c.current = &next
	return changed
}
