package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tempo/internal/api"
	"github.com/MikeSquared-Agency/tempo/internal/batch"
	"github.com/MikeSquared-Agency/tempo/internal/hermes"
)

var (
	servePort       int
	serveRunOnStart bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports over HTTP and run batches on request",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	addEngineFlags(cmd)
	cmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default from TEMPO_PORT)")
	cmd.Flags().BoolVar(&serveRunOnStart, "run-on-start", false, "run one batch over every date before serving")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyIntFlag(cmd, "port", &cfg.Port, servePort)
	setupLogging(cfg.LogLevel, os.Stdout)

	slog.Info("tempo starting", "port", cfg.Port, "source", cfg.Source)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, true, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := batch.NewScheduler(a.runner, cfg.RunTimeout)

	if a.hermes != nil {
		if err := hermes.HandleRunRequests(ctx, a.hermes, scheduler.Trigger, slog.Default()); err != nil {
			return fmt.Errorf("failed to subscribe to run requests: %w", err)
		}
		if err := a.hermes.Publish("tempo.agent.registered", map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	if serveRunOnStart {
		go func() {
			run, err := scheduler.Trigger(ctx, "", "")
			if err != nil {
				slog.Error("startup run failed", "error", err)
				return
			}
			slog.Info("startup run finished", "run_id", run.ID, "pairs", run.Counts.Pairs)
		}()
	}

	srv := api.NewServer(cfg.Port, cfg.APIToken, a.reader(), scheduler.Trigger, slog.Default())
	slog.Info("tempo ready", "port", cfg.Port)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	slog.Info("tempo stopped")
	return nil
}
