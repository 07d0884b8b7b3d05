package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/tempo/internal/aggregate"
	"github.com/MikeSquared-Agency/tempo/internal/batch"
	"github.com/MikeSquared-Agency/tempo/internal/chat"
	"github.com/MikeSquared-Agency/tempo/internal/config"
	"github.com/MikeSquared-Agency/tempo/internal/exclusion"
	"github.com/MikeSquared-Agency/tempo/internal/hermes"
	"github.com/MikeSquared-Agency/tempo/internal/litestore"
	"github.com/MikeSquared-Agency/tempo/internal/pairing"
	"github.com/MikeSquared-Agency/tempo/internal/paramstore"
	"github.com/MikeSquared-Agency/tempo/internal/report"
	"github.com/MikeSquared-Agency/tempo/internal/slack"
	"github.com/MikeSquared-Agency/tempo/internal/source"
	"github.com/MikeSquared-Agency/tempo/internal/source/firestore"
	"github.com/MikeSquared-Agency/tempo/internal/source/jsonl"
	"github.com/MikeSquared-Agency/tempo/internal/store"
)

// app holds the wired components and the cleanups to run on exit.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	runner   *batch.Runner
	sqlite   *litestore.Store
	postgres *store.Store
	hermes   *hermes.Client
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires the source, engine, sinks and notifiers described by cfg.
// With needReader set, a SQLite store at the default path is opened when no
// database is configured.
func newApp(ctx context.Context, cfg config.Config, needReader bool, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	bands, err := aggregate.ParseBands(cfg.Bands)
	if err != nil {
		return nil, err
	}
	scope, ok := pairing.ParseScope(cfg.Scope)
	if !ok {
		return nil, fmt.Errorf("unknown pairing scope %q", cfg.Scope)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	src, err := a.openSource(ctx, chat.NewNormalizer(loc, cfg.NaiveLocal))
	if err != nil {
		return nil, err
	}
	excluded, err := loadExclusions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("exclusion list loaded", "identities", excluded.Len())

	a.runner = batch.NewRunner(batch.Config{
		Workers: cfg.Workers,
		Gap:     cfg.Gap(),
		Bands:   bands,
	}, src, pairing.New(excluded, pairing.WithScope(scope)), logger)

	if err := a.addSinks(ctx, needReader); err != nil {
		return nil, err
	}
	if err := a.addNotifiers(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openSource(ctx context.Context, norm *chat.Normalizer) (source.Source, error) {
	switch a.cfg.Source {
	case config.SourceJSONL:
		return jsonl.New(a.cfg.JSONLDir, norm, a.logger), nil
	default:
		src, err := firestore.New(ctx, firestore.Config{
			ProjectID:      a.cfg.ProjectID,
			RootCollection: a.cfg.RootCollection,
			RootDoc:        a.cfg.RootDoc,
		}, norm, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := src.Close(); err != nil {
				a.logger.Warn("close firestore", "error", err)
			}
		})
		return src, nil
	}
}

// loadExclusions unions the file, SSM parameter and configured identities.
func loadExclusions(ctx context.Context, cfg config.Config) (exclusion.Set, error) {
	set := exclusion.New(cfg.ExcludedIDs...)
	if cfg.ExclusionFile != "" {
		fromFile, err := exclusion.LoadFile(cfg.ExclusionFile)
		if err != nil {
			return exclusion.Set{}, err
		}
		set = set.Union(fromFile)
	}
	if cfg.ExclusionParam != "" {
		ps, err := paramstore.NewFromEnv(ctx, cfg.AWSRegion)
		if err != nil {
			return exclusion.Set{}, err
		}
		fromParam, err := exclusion.LoadParameter(ctx, ps, cfg.ExclusionParam)
		if err != nil {
			return exclusion.Set{}, err
		}
		set = set.Union(fromParam)
	}
	return set, nil
}

func (a *app) addSinks(ctx context.Context, needReader bool) error {
	if a.cfg.OutputDir != "" {
		a.runner.AddSink(report.NewCSVSink(a.cfg.OutputDir))
		a.logger.Info("csv reports enabled", "dir", a.cfg.OutputDir)
	}

	if a.cfg.DatabaseURL != "" {
		db, err := store.New(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		a.postgres = db
		a.runner.AddSink(db)
		a.logger.Info("database connected")
	}

	sqlitePath := a.cfg.SQLitePath
	if sqlitePath == "" && needReader && a.postgres == nil {
		sqlitePath = config.DefaultDBPath()
	}
	if sqlitePath != "" {
		lite, err := litestore.Open(sqlitePath)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := lite.Close(); err != nil {
				a.logger.Warn("close sqlite", "error", err)
			}
		})
		a.sqlite = lite
		a.runner.AddSink(lite)
		a.logger.Info("sqlite store ready", "path", sqlitePath)
	}
	return nil
}

func (a *app) addNotifiers(ctx context.Context) error {
	if a.cfg.NatsURL != "" {
		client, err := hermes.NewClient(ctx, a.cfg.NatsURL, a.cfg.NatsToken, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.hermes = client
		a.runner.AddNotifier(hermes.NewRunNotifier(client, a.logger))
		a.logger.Info("NATS connected", "url", a.cfg.NatsURL)
	}

	if a.cfg.SlackBotToken != "" && a.cfg.SlackChannel != "" {
		a.runner.AddNotifier(slack.NewPoster(a.cfg.SlackBotToken, a.cfg.SlackChannel, a.logger))
		a.logger.Info("slack poster ready", "channel", a.cfg.SlackChannel)
	}
	return nil
}

// reader returns the store the API reads from, preferring Postgres.
func (a *app) reader() batch.Reader {
	if a.postgres != nil {
		return a.postgres
	}
	if a.sqlite != nil {
		return a.sqlite
	}
	return nil
}
