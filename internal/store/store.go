// Package store persists runs in Postgres.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tempo_runs (
		id          uuid PRIMARY KEY,
		started_at  timestamptz NOT NULL,
		finished_at timestamptz NOT NULL,
		date_from   text NOT NULL DEFAULT '',
		date_to     text NOT NULL DEFAULT '',
		scope       text NOT NULL,
		gap_seconds bigint NOT NULL,
		bands       text[] NOT NULL,
		counts      jsonb NOT NULL,
		overall     jsonb NOT NULL,
		failures    jsonb NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS tempo_runs_finished_idx ON tempo_runs (finished_at DESC)`,
	`CREATE TABLE IF NOT EXISTS tempo_pairs (
		run_id              uuid NOT NULL REFERENCES tempo_runs(id) ON DELETE CASCADE,
		conversation_id     text NOT NULL,
		customer_identity   text NOT NULL,
		customer_message_id text NOT NULL,
		customer_text       text NOT NULL,
		customer_time       timestamptz NOT NULL,
		agent_message_id    text NOT NULL,
		agent_text          text NOT NULL,
		agent_time          timestamptz NOT NULL,
		agent_name          text NOT NULL,
		latency_seconds     double precision NOT NULL,
		response_date       text NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tempo_pairs_run_idx ON tempo_pairs (run_id, conversation_id)`,
	`CREATE TABLE IF NOT EXISTS tempo_daily_stats (
		run_id                  uuid NOT NULL REFERENCES tempo_runs(id) ON DELETE CASCADE,
		date                    text NOT NULL,
		total                   integer NOT NULL,
		band_counts             bigint[] NOT NULL,
		min_seconds             double precision NOT NULL,
		max_seconds             double precision NOT NULL,
		avg_seconds             double precision NOT NULL,
		median_seconds          double precision NOT NULL,
		slowest_conversation_id text NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS tempo_customer_stats (
		run_id          uuid NOT NULL REFERENCES tempo_runs(id) ON DELETE CASCADE,
		conversation_id text NOT NULL,
		total           integer NOT NULL,
		min_seconds     double precision NOT NULL,
		max_seconds     double precision NOT NULL,
		avg_seconds     double precision NOT NULL,
		median_seconds  double precision NOT NULL,
		PRIMARY KEY (run_id, conversation_id)
	)`,
}

// Migrate creates the tempo tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
