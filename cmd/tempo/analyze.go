package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tempo/internal/batch"
	"github.com/MikeSquared-Agency/tempo/internal/report"
)

var (
	analyzeFrom      string
	analyzeTo        string
	analyzeCustomers bool
	analyzeQuiet     bool
	analyzeTimeout   time.Duration
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one batch and print the response time report",
		Args:  cobra.NoArgs,
		RunE:  runAnalyzeCmd,
	}
	addEngineFlags(cmd)
	cmd.Flags().StringVar(&analyzeFrom, "from", "", "first date to report (YYYY-MM-DD)")
	cmd.Flags().StringVar(&analyzeTo, "to", "", "last date to report (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&analyzeCustomers, "customers", false, "include the per-customer table")
	cmd.Flags().BoolVar(&analyzeQuiet, "quiet", false, "do not print the report")
	cmd.Flags().DurationVar(&analyzeTimeout, "timeout", 0, "abort the run after this long (0 for no limit)")
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Logs go to stderr so the report can be piped.
	setupLogging(cfg.LogLevel, os.Stderr)
	if err := batch.ValidateRange(analyzeFrom, analyzeTo); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if analyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, analyzeTimeout)
		defer cancel()
	}

	a, err := newApp(ctx, cfg, false, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.runner.WithRange(analyzeFrom, analyzeTo).Run(ctx)
	if err != nil {
		if run != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			slog.Warn("run interrupted", "processed", run.Counts.Processed, "conversations", run.Counts.Conversations)
		}
		return fmt.Errorf("run failed: %w", err)
	}

	if analyzeQuiet {
		return nil
	}
	return report.RenderRun(cmd.OutOrStdout(), run, report.TextOptions{
		Customers: analyzeCustomers,
		Failures:  true,
	})
}
