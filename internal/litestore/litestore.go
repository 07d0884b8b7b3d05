// Package litestore persists runs in a local SQLite database.
package litestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tempo/internal/batch"

	_ "modernc.org/sqlite" // SQLite driver.
)

// runTimeLayout is fixed width so run timestamps sort as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for run data.
type Store struct {
	db *sql.DB
}

var (
	_ batch.Sink   = (*Store)(nil)
	_ batch.Reader = (*Store)(nil)
)

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			date_from TEXT NOT NULL,
			date_to TEXT NOT NULL,
			scope TEXT NOT NULL,
			gap_seconds INTEGER NOT NULL,
			bands TEXT NOT NULL,
			counts TEXT NOT NULL,
			overall TEXT NOT NULL,
			failures TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS pairs (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			conversation_id TEXT NOT NULL,
			customer_identity TEXT NOT NULL,
			customer_message_id TEXT NOT NULL,
			customer_text TEXT NOT NULL,
			customer_time TEXT NOT NULL,
			agent_message_id TEXT NOT NULL,
			agent_text TEXT NOT NULL,
			agent_time TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			latency_seconds REAL NOT NULL,
			response_date TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS daily_stats (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			total INTEGER NOT NULL,
			band_counts TEXT NOT NULL,
			min_seconds REAL NOT NULL,
			max_seconds REAL NOT NULL,
			avg_seconds REAL NOT NULL,
			median_seconds REAL NOT NULL,
			slowest_conversation_id TEXT NOT NULL,
			PRIMARY KEY (run_id, date)
		);`,
		`CREATE TABLE IF NOT EXISTS customer_stats (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			conversation_id TEXT NOT NULL,
			total INTEGER NOT NULL,
			min_seconds REAL NOT NULL,
			max_seconds REAL NOT NULL,
			avg_seconds REAL NOT NULL,
			median_seconds REAL NOT NULL,
			PRIMARY KEY (run_id, conversation_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);`,
		`CREATE INDEX IF NOT EXISTS idx_pairs_run ON pairs(run_id, conversation_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a run with its pairs and stats in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *batch.Run) (err error) {
	info := run.Info()
	bands, err := json.Marshal(info.Bands)
	if err != nil {
		return fmt.Errorf("encode bands: %w", err)
	}
	counts, err := json.Marshal(info.Counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	overall, err := json.Marshal(info.Overall)
	if err != nil {
		return fmt.Errorf("encode overall: %w", err)
	}
	failures := info.Failures
	if failures == nil {
		failures = []batch.Failure{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("encode failures: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, date_from, date_to, scope, gap_seconds, bands, counts, overall, failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID.String(),
		info.StartedAt.UTC().Format(runTimeLayout),
		info.FinishedAt.UTC().Format(runTimeLayout),
		info.From,
		info.To,
		info.Scope,
		info.GapSeconds,
		string(bands),
		string(counts),
		string(overall),
		string(failuresJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err = insertPairs(ctx, tx, run); err != nil {
		return err
	}
	if err = insertDaily(ctx, tx, run); err != nil {
		return err
	}
	if err = insertCustomers(ctx, tx, run); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertPairs(ctx context.Context, tx *sql.Tx, run *batch.Run) error {
	if len(run.Pairs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pairs (run_id, conversation_id, customer_identity, customer_message_id, customer_text, customer_time,
			agent_message_id, agent_text, agent_time, agent_name, latency_seconds, response_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare pairs: %w", err)
	}
	defer stmt.Close()

	id := run.ID.String()
	for _, p := range run.Pairs {
		if _, err := stmt.ExecContext(ctx,
			id, p.ConversationID(), p.Customer.Identity, p.Customer.ID, p.Customer.Text,
			p.Customer.Timestamp.Format(time.RFC3339Nano),
			p.Agent.ID, p.Agent.Text, p.Agent.Timestamp.Format(time.RFC3339Nano), p.Agent.DisplayName,
			p.LatencySeconds(), p.Date(),
		); err != nil {
			return fmt.Errorf("insert pair: %w", err)
		}
	}
	return nil
}

func insertDaily(ctx context.Context, tx *sql.Tx, run *batch.Run) error {
	daily := run.DailyRecords()
	if len(daily) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_stats (run_id, date, total, band_counts, min_seconds, max_seconds, avg_seconds, median_seconds, slowest_conversation_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare daily stats: %w", err)
	}
	defer stmt.Close()

	id := run.ID.String()
	for _, d := range daily {
		counts, err := json.Marshal(d.Counts)
		if err != nil {
			return fmt.Errorf("encode band counts: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			id, d.Date, d.Total, string(counts),
			d.MinSeconds, d.MaxSeconds, d.AvgSeconds, d.MedianSeconds, d.SlowestConversationID,
		); err != nil {
			return fmt.Errorf("insert daily stats: %w", err)
		}
	}
	return nil
}

func insertCustomers(ctx context.Context, tx *sql.Tx, run *batch.Run) error {
	customers := run.CustomerRecords()
	if len(customers) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO customer_stats (run_id, conversation_id, total, min_seconds, max_seconds, avg_seconds, median_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare customer stats: %w", err)
	}
	defer stmt.Close()

	id := run.ID.String()
	for _, c := range customers {
		if _, err := stmt.ExecContext(ctx,
			id, c.ConversationID, c.Total, c.MinSeconds, c.MaxSeconds, c.AvgSeconds, c.MedianSeconds,
		); err != nil {
			return fmt.Errorf("insert customer stats: %w", err)
		}
	}
	return nil
}

// LatestRun returns the most recently finished run.
func (s *Store) LatestRun(ctx context.Context) (*batch.RunInfo, error) {
	var (
		info                  batch.RunInfo
		id, started, finished string
		bands, counts         string
		overall, failuresJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, date_from, date_to, scope, gap_seconds, bands, counts, overall, failures
		 FROM runs
		 ORDER BY finished_at DESC
		 LIMIT 1`,
	).Scan(&id, &started, &finished, &info.From, &info.To, &info.Scope, &info.GapSeconds, &bands, &counts, &overall, &failuresJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, batch.ErrNoRuns
		}
		return nil, fmt.Errorf("query latest run: %w", err)
	}

	if info.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	if info.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if info.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	for _, f := range []struct {
		raw string
		dst any
	}{
		{bands, &info.Bands},
		{counts, &info.Counts},
		{overall, &info.Overall},
		{failuresJSON, &info.Failures},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
	}
	return &info, nil
}

// ListDailyStats returns the daily stats of a run within [from, to]; empty
// bounds are open.
func (s *Store) ListDailyStats(ctx context.Context, runID uuid.UUID, from, to string) ([]batch.DailyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, total, band_counts, min_seconds, max_seconds, avg_seconds, median_seconds, slowest_conversation_id
		 FROM daily_stats
		 WHERE run_id = ?
		   AND (? = '' OR date >= ?)
		   AND (? = '' OR date <= ?)
		 ORDER BY date`,
		runID.String(), from, from, to, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var out []batch.DailyRecord
	for rows.Next() {
		var (
			d      batch.DailyRecord
			counts string
		)
		if err := rows.Scan(&d.Date, &d.Total, &counts, &d.MinSeconds, &d.MaxSeconds, &d.AvgSeconds, &d.MedianSeconds, &d.SlowestConversationID); err != nil {
			return nil, fmt.Errorf("scan daily stats: %w", err)
		}
		if err := json.Unmarshal([]byte(counts), &d.Counts); err != nil {
			return nil, fmt.Errorf("decode band counts: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListCustomerStats returns the customer stats of a run ordered by conversation id.
func (s *Store) ListCustomerStats(ctx context.Context, runID uuid.UUID) ([]batch.CustomerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, total, min_seconds, max_seconds, avg_seconds, median_seconds
		 FROM customer_stats
		 WHERE run_id = ?
		 ORDER BY conversation_id`,
		runID.String(),
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

// CountPairs returns the number of stored pairs of a run.
func (s *Store) CountPairs(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pairs WHERE run_id = ?`, runID.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pairs: %w", err)
	}
	return n, nil
}
