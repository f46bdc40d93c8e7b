package traffic

import "go.uber.org/atomic"

// ByteCounter is the running total of bytes observed since process start.
type ByteCounter struct {
	total *atomic.Uint64
}

// NewByteCounter returns a zeroed counter.
func NewByteCounter() *ByteCounter {
	return &ByteCounter{total: atomic.NewUint64(0)}
}

// OnPacket adds sizeBytes to the total. Non-positive sizes are ignored.
// It is the capture callback and never blocks.
func (c *ByteCounter) OnPacket(sizeBytes int) {
	if sizeBytes <= 0 {
		return
	}
	c.total.Add(uint64(sizeBytes))
}

// Total returns a consistent read of the running total.
func (c *ByteCounter) Total() uint64 {
	return c.total.Load()
}
