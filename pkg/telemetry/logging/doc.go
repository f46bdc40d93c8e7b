// Package logging builds the process-wide structured logger.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON, text and console output formats
//   - Configurable log levels (debug, info, warn, error)
//   - Context-aware records carrying the monitored interface and the
//     periodic task that emitted them
//   - An adapter that routes robfig/cron scheduler logs into slog
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithTask(ctx, "validate")
//	logger.InfoContext(ctx, "tick completed") // adds task=validate
package logging
