package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/tempo/internal/batch"
)

var (
	_ batch.Sink   = (*Store)(nil)
	_ batch.Reader = (*Store)(nil)
)

var pairColumns = []string{
	"run_id", "conversation_id", "customer_identity", "customer_message_id", "customer_text",
	"customer_time", "agent_message_id", "agent_text", "agent_time", "agent_name",
	"latency_seconds", "response_date",
}

var customerColumns = []string{
	"run_id", "conversation_id", "total", "min_seconds", "max_seconds", "avg_seconds", "median_seconds",
}

// SaveRun writes a run and its pairs, daily and customer stats in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *batch.Run) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	info := run.Info()
	failures := info.Failures
	if failures == nil {
		failures = []batch.Failure{}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO tempo_runs (id, started_at, finished_at, date_from, date_to, scope, gap_seconds, bands, counts, overall, failures)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		info.ID, info.StartedAt, info.FinishedAt, info.From, info.To, info.Scope, info.GapSeconds,
		info.Bands, info.Counts, info.Overall, failures,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"tempo_pairs"}, pairColumns,
		pgx.CopyFromSlice(len(run.Pairs), func(i int) ([]any, error) {
			p := run.Pairs[i]
			return []any{
				run.ID, p.ConversationID(), p.Customer.Identity, p.Customer.ID, p.Customer.Text,
				p.Customer.Timestamp, p.Agent.ID, p.Agent.Text, p.Agent.Timestamp, p.Agent.DisplayName,
				p.LatencySeconds(), p.Date(),
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy pairs: %w", err)
	}

	daily := run.DailyRecords()
	if len(daily) > 0 {
		b := &pgx.Batch{}
		for _, d := range daily {
			b.Queue(`
				INSERT INTO tempo_daily_stats (run_id, date, total, band_counts, min_seconds, max_seconds, avg_seconds, median_seconds, slowest_conversation_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				run.ID, d.Date, d.Total, toInt64s(d.Counts), d.MinSeconds, d.MaxSeconds, d.AvgSeconds, d.MedianSeconds, d.SlowestConversationID,
			)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("insert daily stats: %w", err)
		}
	}

	customers := run.CustomerRecords()
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"tempo_customer_stats"}, customerColumns,
		pgx.CopyFromSlice(len(customers), func(i int) ([]any, error) {
			c := customers[i]
			return []any{run.ID, c.ConversationID, c.Total, c.MinSeconds, c.MaxSeconds, c.AvgSeconds, c.MedianSeconds}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy customer stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestRun returns the most recently finished run.
func (s *Store) LatestRun(ctx context.Context) (*batch.RunInfo, error) {
	var info batch.RunInfo
	err := s.pool.QueryRow(ctx, `
		SELECT id, started_at, finished_at, date_from, date_to, scope, gap_seconds, bands, counts, overall, failures
		FROM tempo_runs
		ORDER BY finished_at DESC
		LIMIT 1`,
	).Scan(&info.ID, &info.StartedAt, &info.FinishedAt, &info.From, &info.To, &info.Scope, &info.GapSeconds,
		&info.Bands, &info.Counts, &info.Overall, &info.Failures)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, batch.ErrNoRuns
		}
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	return &info, nil
}

// ListDailyStats returns the daily stats of a run within [from, to]; empty
// bounds are open.
func (s *Store) ListDailyStats(ctx context.Context, runID uuid.UUID, from, to string) ([]batch.DailyRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, total, band_counts, min_seconds, max_seconds, avg_seconds, median_seconds, slowest_conversation_id
		FROM tempo_daily_stats
		WHERE run_id = $1
		  AND ($2 = '' OR date >= $2)
		  AND ($3 = '' OR date <= $3)
		ORDER BY date`,
		runID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var out []batch.DailyRecord
	for rows.Next() {
		var (
			d      batch.DailyRecord
			counts []int64
		)
		if err := rows.Scan(&d.Date, &d.Total, &counts, &d.MinSeconds, &d.MaxSeconds, &d.AvgSeconds, &d.MedianSeconds, &d.SlowestConversationID); err != nil {
			return nil, fmt.Errorf("scan daily stats: %w", err)
		}
		d.Counts = toInts(counts)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListCustomerStats returns the customer stats of a run ordered by conversation id.
func (s *Store) ListCustomerStats(ctx context.Context, runID uuid.UUID) ([]batch.CustomerRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT conversation_id, total, min_seconds, max_seconds, avg_seconds, median_seconds
		FROM tempo_customer_stats
		WHERE run_id = $1
		ORDER BY conversation_id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query customer stats: %w", err)
	}
	defer rows.Close()

	var out []batch.CustomerRecord
	for rows.Next() {
		var c batch.CustomerRecord
		if err := rows.Scan(&c.ConversationID, &c.Total, &c.MinSeconds, &c.MaxSeconds, &c.AvgSeconds, &c.MedianSeconds); err != nil {
			return nil, fmt.Errorf("scan customer stats: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func toInt64s(v []int) []int64 {
	out := make([]int64, len(v))
	for i, n := range v {
		out[i] = int64(n)
	}
	return out
}

func toInts(v []int64) []int {
	out := make([]int, len(v))
	for i, n := range v {
		out[i] = int(n)
	}
	return out
}
