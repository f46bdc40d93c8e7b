package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context cancelled on the first SIGINT or
// SIGTERM, and a channel closed on the second. Callers drain gracefully
// on the first and abandon the drain on the second.
func SetupSignalHandler(logger *slog.Logger) (context.Context, <-chan struct{}) {
	return notify(logger, os.Interrupt, syscall.SIGTERM)
}

func notify(logger *slog.Logger, signals ...os.Signal) (context.Context, <-chan struct{}) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	force := make(chan struct{})

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, signals...)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()

		sig = <-sigChan
		logger.Warn("received second signal, forcing shutdown", "signal", sig.String())
		close(force)
		signal.Stop(sigChan)
	}()

	return ctx, force
}
