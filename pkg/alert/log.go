package alert

import (
	"context"
	"log/slog"
)

// LogSink writes alerts to the structured log and nowhere else.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "alert.log")}
}

// Publish implements Sink.
func (s *LogSink) Publish(ctx context.Context, a Alert) error {
	s.logger.WarnContext(ctx, a.Message,
		"alert_id", a.ID,
		"interface", a.Interface,
		"delta", a.Delta,
		"min", a.Min,
		"max", a.Max,
	)
	return nil
}

// Close implements Sink.
func (s *LogSink) Close() error {
	return nil
}
