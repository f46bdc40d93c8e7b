package traffic

import "time"

// Recorder receives measurements from the monitor. The Prometheus
// collector in pkg/telemetry/metrics implements it.
type Recorder interface {
	RecordValidation(outcome string, delta int64, total uint64, duration time.Duration)
	RecordRefresh(result string, duration time.Duration)
	SetLimits(min, max int64)
	RecordAlert(delivered bool)
	RecordCaptureError()
}

type nopRecorder struct{}

func (nopRecorder) RecordValidation(string, int64, uint64, time.Duration) {}
func (nopRecorder) RecordRefresh(string, time.Duration)                  {}
func (nopRecorder) SetLimits(int64, int64)                               {}
func (nopRecorder) RecordAlert(bool)                                     {}
func (nopRecorder) RecordCaptureError()                                  {}
