// Package main provides the CLI entrypoint for tempo.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/tempo/internal/config"
)

var (
	configPath string
	logLevel   string

	flagGap        int
	flagBands      string
	flagScope      string
	flagWorkers    int
	flagTimezone   string
	flagSource     string
	flagProject    string
	flagJSONLDir   string
	flagExclFile   string
	flagExclParam  string
	flagExclIDs    []string
	flagOutputDir  string
	flagSQLitePath string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tempo",
		Short:         "Measure how fast agents answer customer chats",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

// addEngineFlags registers the flags shared by analyze and serve.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagGap, "gap", 0, "minutes of silence that start a new session")
	cmd.Flags().StringVar(&flagBands, "bands", "", "band layout: three or four")
	cmd.Flags().StringVar(&flagScope, "scope", "", "pairing scope: conversation or session")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "conversations processed in parallel")
	cmd.Flags().StringVar(&flagTimezone, "timezone", "", "IANA zone used for dates")
	cmd.Flags().StringVar(&flagSource, "source", "", "message source: firestore or jsonl")
	cmd.Flags().StringVar(&flagProject, "project", "", "Firestore project id")
	cmd.Flags().StringVar(&flagJSONLDir, "jsonl-dir", "", "directory of <conversation>.jsonl exports")
	cmd.Flags().StringVar(&flagExclFile, "exclude-file", "", "file listing excluded customer identities")
	cmd.Flags().StringVar(&flagExclParam, "exclude-param", "", "SSM parameter listing excluded customer identities")
	cmd.Flags().StringSliceVar(&flagExclIDs, "exclude", nil, "excluded customer identities")
	cmd.Flags().StringVar(&flagOutputDir, "out", "", "directory for CSV reports")
	cmd.Flags().StringVar(&flagSQLitePath, "sqlite", "", "SQLite database that stores runs")
}

// loadConfig merges the environment, the config file and the flags that
// were set on cmd, in increasing priority.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Load()
	fileCfg, err := config.LoadFile(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Apply(fileCfg); err != nil {
		return config.Config{}, fmt.Errorf("failed to apply config: %w", err)
	}

	applyStringFlag(cmd, "log-level", &cfg.LogLevel, logLevel)
	applyIntFlag(cmd, "gap", &cfg.GapMinutes, flagGap)
	applyStringFlag(cmd, "bands", &cfg.Bands, flagBands)
	applyStringFlag(cmd, "scope", &cfg.Scope, flagScope)
	applyIntFlag(cmd, "workers", &cfg.Workers, flagWorkers)
	applyStringFlag(cmd, "timezone", &cfg.Timezone, flagTimezone)
	applyStringFlag(cmd, "source", &cfg.Source, flagSource)
	applyStringFlag(cmd, "project", &cfg.ProjectID, flagProject)
	applyStringFlag(cmd, "jsonl-dir", &cfg.JSONLDir, flagJSONLDir)
	applyStringFlag(cmd, "exclude-file", &cfg.ExclusionFile, flagExclFile)
	applyStringFlag(cmd, "exclude-param", &cfg.ExclusionParam, flagExclParam)
	applyStringFlag(cmd, "out", &cfg.OutputDir, flagOutputDir)
	applyStringFlag(cmd, "sqlite", &cfg.SQLitePath, flagSQLitePath)
	if cmd.Flags().Changed("exclude") {
		cfg.ExcludedIDs = append(cfg.ExcludedIDs, flagExclIDs...)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func setupLogging(level string, w io.Writer) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
