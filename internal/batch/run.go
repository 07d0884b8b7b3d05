package batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tempo/internal/aggregate"
	"github.com/MikeSquared-Agency/tempo/internal/chat"
)

// Run is the result of one batch over a source.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	// Parameters the run was made with.
	From  string
	To    string
	Gap   time.Duration
	Scope string

	Counts   Counts
	Failures []Failure

	// Pairs inside [From, To], in conversation id order.
	Pairs   []chat.ResponsePair
	Summary aggregate.Summary
}

// Counts are the totals of a run. Pairing counts cover every loaded message;
// Pairs is counted after the date filter.
type Counts struct {
	Conversations int `json:"conversations"` // listed by the source
	Processed     int `json:"processed"`
	Skipped       int `json:"skipped"` // no valid messages after filtering
	Failed        int `json:"failed"`

	// Raw record counts cover every date. Messages and everything below are
	// limited to the run's date range.
	Records    int `json:"records"`
	Malformed  int `json:"malformed"`
	Duplicates int `json:"duplicates"`
	Messages   int `json:"messages"`

	Customers       int `json:"customers"`
	Agents          int `json:"agents"`
	Excluded        int `json:"excluded"`
	Anomalies       int `json:"anomalies"`
	Censored        int `json:"censored"`
	UnmatchedAgents int `json:"unmatched_agents"`

	Pairs int `json:"pairs"`
}

// UnmatchedCustomers counts eligible customer messages that produced no pair.
func (c Counts) UnmatchedCustomers() int {
	return c.Censored + c.Anomalies
}

// Failure records a conversation that could not be processed.
type Failure struct {
	ConversationID string `json:"conversation_id"`
	Err            string `json:"error"`
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Sink persists a finished run.
type Sink interface {
	SaveRun(ctx context.Context, run *Run) error
}

// Notifier announces a finished run.
type Notifier interface {
	NotifyRun(ctx context.Context, run *Run) error
}
