package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/trafficwatch/pkg/cli"
	"mercator-hq/trafficwatch/pkg/config"
	"mercator-hq/trafficwatch/pkg/limits/store"
	"mercator-hq/trafficwatch/pkg/server"
	"mercator-hq/trafficwatch/pkg/telemetry/health"
	"mercator-hq/trafficwatch/pkg/telemetry/metrics"
	"mercator-hq/trafficwatch/pkg/telemetry/tracing"
	"mercator-hq/trafficwatch/pkg/traffic"
)

var runFlags struct {
	iface         string
	listenAddress string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run [filter-net]",
	Short: "Start monitoring traffic",
	Long: `Start the traffic monitor with the specified configuration.

The monitor captures on the configured interface, refreshes limits from the
store every refresh period and validates the bytes seen in every validation
window. An optional network argument restricts capture to that network.

Examples:
  # Start with config.yaml
  trafficwatch run --config config.yaml

  # Only count traffic to or from 10.0.0.0/8 on eth0
  trafficwatch run --interface eth0 10.0.0.0/8

  # Validate config without starting
  trafficwatch run --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.iface, "interface", "i", "", "override capture interface")
	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override HTTP listen address")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.iface != "" {
		cfg.Capture.Interface = runFlags.iface
	}
	if runFlags.listenAddress != "" {
		cfg.Server.Address = runFlags.listenAddress
	}
	if len(args) == 1 {
		cfg.Capture.FilterNet = args[0]
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, force := cli.SetupSignalHandler(logger)
	if err := serve(ctx, force, cfg, logger); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// serve runs the monitor and HTTP server until ctx is cancelled or one
// of them fails, then shuts everything down. A close of force abandons
// the monitor's drain.
func serve(ctx context.Context, force <-chan struct{}, cfg *config.Config, logger *slog.Logger) error {
	source, err := newCaptureSource(&cfg.Capture)
	if err != nil {
		return err
	}

	limits, err := openStore(ctx, &cfg.Limits, false)
	if err != nil {
		return err
	}
	defer limits.Close()

	formatter, err := newFormatter(&cfg.Alert)
	if err != nil {
		return err
	}
	sink, err := newSink(ctx, &cfg.Alert, formatter, logger)
	if err != nil {
		return fmt.Errorf("failed to connect %s alert sink: %w", cfg.Alert.Sink, err)
	}
	defer sink.Close()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	monitor, err := traffic.New(monitorConfig(cfg), traffic.Dependencies{
		Capture:   source,
		Limits:    limits,
		Sink:      sink,
		Formatter: formatter,
		Recorder:  collector,
		Tracer:    tracer.Tracer(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	collector.ObserveTotal(monitor.State().Counter().Total)

	if err := monitor.Start(ctx); err != nil {
		return err
	}
	logger.Info("trafficwatch started",
		"version", Version,
		"interface", cfg.Capture.Interface,
		"capture", source.Name(),
		"limits", cfg.Limits.Driver,
		"sink", cfg.Alert.Sink,
	)

	g, gctx := errgroup.WithContext(ctx)

	if !cfg.Server.Disabled {
		checker := health.New(5 * time.Second)
		checker.RegisterCheck("monitor", health.MonitorCheck(monitor))
		checker.RegisterCheck("capture", health.CaptureCheck(monitor))
		checker.RegisterCheck("limits", health.LimitsCheck(monitor))

		srv := server.New(&cfg.Server, server.Options{
			Monitor:     monitor,
			Checker:     checker,
			Metrics:     collector.Handler(),
			MetricsPath: cfg.Telemetry.Metrics.Path,
			Version:     Version,
			Commit:      GitCommit,
			BuildTime:   BuildDate,
			Logger:      logger,
		})
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	if watcher, ok := limits.(*store.FileSource); ok && cfg.Limits.Watch {
		g.Go(func() error {
			return watcher.Watch(gctx, func() {
				if err := monitor.RefreshNow(gctx); err != nil && !errors.Is(err, traffic.ErrNotRunning) {
					logger.Warn("refresh after limits file change failed", "error", err)
				}
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-force:
				cancel()
			case <-shutdownCtx.Done():
			}
		}()

		return monitor.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("trafficwatch stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
