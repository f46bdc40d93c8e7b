package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/trafficwatch/pkg/cli"
	"mercator-hq/trafficwatch/pkg/config"
	"mercator-hq/trafficwatch/pkg/traffic"
)

var validateFlags struct {
	connect bool
	timeout time.Duration
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load and validate the configuration file and environment overrides.

With --connect the limits store is opened and queried, the alert sink is
connected and the capture interface is opened once.

Examples:
  # Check the config file
  trafficwatch validate --config config.yaml

  # Also check connectivity
  trafficwatch validate --connect`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.connect, "connect", false, "open the store, sink and capture interface")
	validateCmd.Flags().DurationVar(&validateFlags.timeout, "timeout", 10*time.Second, "connectivity check timeout")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")
	fmt.Fprintf(out, "  validation period: %s\n", cfg.Monitor.ValidationPeriod)
	fmt.Fprintf(out, "  refresh period:    %s\n", cfg.Monitor.RefreshPeriod)
	fmt.Fprintf(out, "  capture:           %s on %s\n", cfg.Capture.Backend, cfg.Capture.Interface)
	fmt.Fprintf(out, "  limits:            %s\n", cfg.Limits.Driver)
	fmt.Fprintf(out, "  alert sink:        %s\n", cfg.Alert.Sink)

	if !validateFlags.connect {
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), validateFlags.timeout)
	defer cancel()

	if err := checkConnectivity(ctx, cfg, out); err != nil {
		logger.Debug("connectivity check failed", "error", err)
		return cli.NewCommandError("validate", err)
	}
	return nil
}

func checkConnectivity(ctx context.Context, cfg *config.Config, out io.Writer) error {
	limits, err := openStore(ctx, &cfg.Limits, false)
	if err != nil {
		return err
	}
	defer limits.Close()

	current, err := limits.Fetch(ctx)
	switch {
	case errors.Is(err, traffic.ErrLimitsUnavailable):
		fmt.Fprintln(out, "! Limits store reachable, no limits published")
	case err != nil:
		return fmt.Errorf("failed to fetch limits: %w", err)
	default:
		fmt.Fprintf(out, "✓ Limits store reachable, current limits %s\n", current)
	}

	formatter, err := newFormatter(&cfg.Alert)
	if err != nil {
		return err
	}
	sink, err := newSink(ctx, &cfg.Alert, formatter, nil)
	if err != nil {
		return fmt.Errorf("failed to connect %s alert sink: %w", cfg.Alert.Sink, err)
	}
	_ = sink.Close()
	fmt.Fprintf(out, "✓ Alert sink %s connected\n", cfg.Alert.Sink)

	source, err := newCaptureSource(&cfg.Capture)
	if err != nil {
		return err
	}
	handle, err := source.Open(cfg.Capture.Interface)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	_ = handle.Close()
	fmt.Fprintf(out, "✓ Capture %s opened on %s\n", source.Name(), cfg.Capture.Interface)

	return nil
}
