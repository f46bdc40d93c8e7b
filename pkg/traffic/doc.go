// Package traffic measures interface traffic and alerts when the volume
// observed over a validation window leaves the active [min, max] envelope.
//
// # Overview
//
// Three activities run concurrently over one explicitly owned State:
//
//   - capture: a dedicated goroutine drains a capture.Handle and adds every
//     packet size to the ByteCounter
//   - refresh: a periodic task fetches the current limits from a
//     LimitSource and publishes them into the LimitCache
//   - validate: a periodic task computes the bytes transferred since the
//     previous tick and publishes an alert when they are out of range
//
// # Concurrency
//
// The counter is a lock-free atomic; the capture path never waits on the
// periodic tasks. Limits and the validation baseline share one
// sync.RWMutex. Refresh holds it exclusively only for the snapshot swap;
// validation holds it for the read-total, rebaseline and read-limits
// sequence. Neither task holds the lock while calling the limit store or
// the alert sink.
//
// Periodic tasks run on a fixed-rate cron schedule. A tick that is still
// running when its next activation arrives causes that activation to be
// skipped, so a task never overlaps itself; the two tasks are independent.
// A panic in a tick is recovered and logged and does not stop the schedule.
//
// # Lifecycle
//
//	Uninitialized -> Running -> Draining -> Stopped
//
// Start opens the capture handle, performs an initial refresh and
// schedules both tasks. An open failure is returned and the monitor stays
// Uninitialized. Shutdown stops scheduling, waits for in-flight ticks for
// the configured grace period, cancels whatever is still running, and
// closes the capture handle exactly once.
//
// # Counter Anomalies
//
// The counter only grows, so a total below the baseline means the counter
// was reset or wrapped. Validation reports ErrCounterAnomaly for that tick,
// re-baselines to the current total, and raises no alert.
package traffic
