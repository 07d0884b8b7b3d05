// Package batch runs the analytics pipeline over every conversation of a source.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/tempo/internal/aggregate"
	"github.com/MikeSquared-Agency/tempo/internal/chat"
	"github.com/MikeSquared-Agency/tempo/internal/pairing"
	"github.com/MikeSquared-Agency/tempo/internal/segment"
	"github.com/MikeSquared-Agency/tempo/internal/source"
)

// DefaultWorkers is used when Config.Workers is not positive.
const DefaultWorkers = 4

// Config holds the batch parameters.
type Config struct {
	Workers int
	Gap     time.Duration
	Bands   aggregate.Bands
	From    string // YYYY-MM-DD, inclusive; empty for no lower bound
	To      string // YYYY-MM-DD, inclusive; empty for no upper bound
}

// Runner fans conversations out to workers and reduces their results.
type Runner struct {
	cfg       Config
	src       source.Source
	engine    *pairing.Engine
	sinks     []Sink
	notifiers []Notifier
	logger    *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg Config, src source.Source, engine *pairing.Engine, logger *slog.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Gap <= 0 {
		cfg.Gap = segment.DefaultGap
	}
	if cfg.Bands.Len() < 2 {
		cfg.Bands = aggregate.ThreeBands
	}
	return &Runner{cfg: cfg, src: src, engine: engine, logger: logger}
}

// AddSink registers a sink that receives every completed run.
func (r *Runner) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// AddNotifier registers a notifier that is told about every completed run.
func (r *Runner) AddNotifier(n Notifier) {
	r.notifiers = append(r.notifiers, n)
}

// WithRange returns a copy of the runner restricted to [from, to].
func (r *Runner) WithRange(from, to string) *Runner {
	cp := *r
	cp.cfg.From, cp.cfg.To = from, to
	return &cp
}

// outcome is the private result of one conversation.
type outcome struct {
	stats   source.Stats
	result  pairing.Result
	skipped bool
	err     error
}

// Run processes every conversation. A conversation that fails to load is
// recorded in Run.Failures and the batch continues. When ctx is cancelled no
// new conversations are started; the partial run is returned with ctx.Err()
// and is not handed to sinks or notifiers.
func (r *Runner) Run(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		From:      r.cfg.From,
		To:        r.cfg.To,
		Gap:       r.cfg.Gap,
		Scope:     r.engine.Scope().String(),
	}

	ids, err := r.src.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	run.Counts.Conversations = len(ids)
	r.logger.Info("conversations discovered", "run_id", run.ID, "count", len(ids), "workers", r.cfg.Workers)

	outcomes := make([]*outcome, len(ids))

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = r.processConversation(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]pairing.Result, 0, len(outcomes))
	for i, o := range outcomes {
		if o == nil {
			continue
		}
		run.Counts.Records += o.stats.Records
		run.Counts.Malformed += o.stats.Malformed
		run.Counts.Duplicates += o.stats.Duplicates

		switch {
		case o.err != nil:
			run.Counts.Failed++
			run.Failures = append(run.Failures, Failure{ConversationID: ids[i], Err: o.err.Error()})
		case o.skipped:
			run.Counts.Skipped++
		default:
			run.Counts.Processed++
			results = append(results, o.result)
		}
	}

	all := pairing.MergeAll(results).Within(r.cfg.From, r.cfg.To)

	run.Counts.Messages = all.Customers + all.Agents
	run.Counts.Customers = all.Customers
	run.Counts.Agents = all.Agents
	run.Counts.Excluded = all.Excluded
	run.Counts.Anomalies = all.Anomalies
	run.Counts.Censored = all.Censored
	run.Counts.UnmatchedAgents = all.UnmatchedAgents

	run.Pairs = all.Pairs
	run.Counts.Pairs = len(run.Pairs)
	run.Summary = aggregate.Aggregate(run.Pairs, r.cfg.Bands)
	run.FinishedAt = time.Now().UTC()

	if err := ctx.Err(); err != nil {
		r.logger.Info("run interrupted", "run_id", run.ID, "processed", run.Counts.Processed)
		return run, err
	}

	r.logger.Info("run complete",
		"run_id", run.ID,
		"conversations", run.Counts.Conversations,
		"processed", run.Counts.Processed,
		"skipped", run.Counts.Skipped,
		"failed", run.Counts.Failed,
		"pairs", run.Counts.Pairs,
		"excluded", run.Counts.Excluded,
		"anomalies", run.Counts.Anomalies,
		"censored", run.Counts.Censored,
		"unmatched_agents", run.Counts.UnmatchedAgents,
		"duration", run.Duration(),
	)

	var sinkErrs []error
	for _, s := range r.sinks {
		if err := s.SaveRun(ctx, run); err != nil {
			r.logger.Error("sink failed", "run_id", run.ID, "sink", fmt.Sprintf("%T", s), "error", err)
			sinkErrs = append(sinkErrs, err)
		}
	}

	for _, n := range r.notifiers {
		if err := n.NotifyRun(ctx, run); err != nil {
			r.logger.Warn("notify failed", "run_id", run.ID, "notifier", fmt.Sprintf("%T", n), "error", err)
		}
	}

	if len(sinkErrs) > 0 {
		return run, fmt.Errorf("save run: %w", errors.Join(sinkErrs...))
	}
	return run, nil
}

func (r *Runner) processConversation(ctx context.Context, id string) *outcome {
	conv, stats, err := r.src.LoadConversation(ctx, id)
	if err != nil {
		r.logger.Warn("failed to load conversation", "conversation_id", id, "error", err)
		return &outcome{stats: stats, err: err}
	}

	sessions, err := segment.Split(conv.Messages, r.cfg.Gap)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyConversation) {
			r.logger.Debug("skipping empty conversation", "conversation_id", id, "records", stats.Records)
			return &outcome{stats: stats, skipped: true}
		}
		return &outcome{stats: stats, err: fmt.Errorf("segment: %w", err)}
	}

	res := r.engine.PairSessions(sessions)
	r.logger.Debug("conversation paired",
		"conversation_id", id,
		"sessions", len(sessions),
		"pairs", len(res.Pairs),
		"excluded", res.Excluded,
	)
	return &outcome{stats: stats, result: res}
}
