package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/trafficwatch/pkg/cli"
	"mercator-hq/trafficwatch/pkg/limits/store"
	"mercator-hq/trafficwatch/pkg/traffic"
)

var limitsFlags struct {
	min       int64
	max       int64
	effective string
	all       bool
	output    string
}

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Manage the hourly traffic limits",
	Long: `Manage the limits store read by the monitor.

Limits are stored as pairs of "min" and "max" records sharing an effective
date. The monitor uses the pair with the latest effective date.`,
}

var limitsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the limits table",
	RunE:  initLimits,
}

var limitsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Publish a new [min, max] pair",
	Long: `Insert a min and a max record with the same effective date.

Examples:
  # Effective now
  trafficwatch limits set --min 2048 --max 4096

  # Effective from a given time
  trafficwatch limits set --min 0 --max 1073741824 --effective 2026-10-15T00:00:00Z`,
	RunE: setLimits,
}

var limitsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current limits",
	RunE:  showLimits,
}

func init() {
	rootCmd.AddCommand(limitsCmd)
	limitsCmd.AddCommand(limitsInitCmd, limitsSetCmd, limitsShowCmd)

	limitsSetCmd.Flags().Int64Var(&limitsFlags.min, "min", 0, "minimum bytes per validation window")
	limitsSetCmd.Flags().Int64Var(&limitsFlags.max, "max", 0, "maximum bytes per validation window")
	limitsSetCmd.Flags().StringVar(&limitsFlags.effective, "effective", "", "effective date (RFC3339 or YYYY-MM-DD, default now)")
	_ = limitsSetCmd.MarkFlagRequired("max")

	limitsShowCmd.Flags().BoolVar(&limitsFlags.all, "all", false, "list every record")
	limitsShowCmd.Flags().StringVarP(&limitsFlags.output, "output", "o", "text", "output format: text, json, csv")
}

func withStore(cmd *cobra.Command, createSchema bool, fn func(ctx context.Context, s store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := setupLogger(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openStore(ctx, &cfg.Limits, createSchema)
	if err != nil {
		return cli.NewCommandError(cmd.Name(), err)
	}
	defer s.Close()

	if err := fn(ctx, s); err != nil {
		return cli.NewCommandError(cmd.Name(), err)
	}
	return nil
}

func initLimits(cmd *cobra.Command, args []string) error {
	return withStore(cmd, true, func(ctx context.Context, s store.Store) error {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Limits store initialized")
		return nil
	})
}

func setLimits(cmd *cobra.Command, args []string) error {
	limits, err := traffic.NewLimits(limitsFlags.min, limitsFlags.max)
	if err != nil {
		return cli.NewConfigError("limits", err.Error())
	}
	effective, err := parseEffective(limitsFlags.effective, time.Now())
	if err != nil {
		return cli.NewConfigError("effective", err.Error())
	}

	return withStore(cmd, false, func(ctx context.Context, s store.Store) error {
		for _, r := range []store.Record{
			{Name: store.NameMin, Value: limits.Min, EffectiveDate: effective},
			{Name: store.NameMax, Value: limits.Max, EffectiveDate: effective},
		} {
			if _, err := s.Insert(ctx, r); err != nil {
				return fmt.Errorf("failed to insert %s: %w", r.Name, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Limits %s effective %s\n", limits, effective.Format(time.RFC3339))
		return nil
	})
}

func showLimits(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(limitsFlags.output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}
	formatter := cli.NewFormatter(format)

	return withStore(cmd, false, func(ctx context.Context, s store.Store) error {
		if limitsFlags.all {
			records, err := s.Records(ctx)
			if err != nil {
				return err
			}
			return formatter.FormatTo(cmd.OutOrStdout(), recordTable(records))
		}

		current, err := s.Fetch(ctx)
		if errors.Is(err, traffic.ErrLimitsUnavailable) {
			fmt.Fprintln(cmd.OutOrStdout(), "no limits published")
			return nil
		}
		if err != nil {
			return err
		}
		return formatter.FormatTo(cmd.OutOrStdout(), limitsTable(current))
	})
}

// parseEffective accepts RFC3339 or a bare date. Empty means now,
// truncated to the second so SQLite and Postgres compare equal.
func parseEffective(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now.UTC().Truncate(time.Second), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid effective date %q: expected RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

type recordTable []store.Record

func (t recordTable) Header() []string {
	return []string{"ID", "NAME", "VALUE", "EFFECTIVE"}
}

func (t recordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			strconv.FormatInt(r.Value, 10),
			r.EffectiveDate.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

type limitsTable traffic.Limits

func (t limitsTable) Header() []string {
	return []string{"MIN", "MAX"}
}

func (t limitsTable) Rows() [][]string {
	return [][]string{{strconv.FormatInt(t.Min, 10), strconv.FormatInt(t.Max, 10)}}
}
