package logging

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronLogger adapts slog to cron.Logger. Scheduler chatter (start, wake,
// schedule) goes to debug; skipped overlapping runs are warnings.
type CronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = (*CronLogger)(nil)

// NewCronLogger wraps logger. A nil logger uses slog.Default.
func NewCronLogger(logger *slog.Logger) *CronLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronLogger{logger: logger}
}

// Info implements cron.Logger.
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.logger.Warn("tick skipped, previous run still in progress", keysAndValues...)
		return
	}
	l.logger.Debug("cron "+msg, keysAndValues...)
}

// Error implements cron.Logger.
func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	l.logger.Error("cron "+msg, args...)
}
