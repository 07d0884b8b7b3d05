package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tempo/internal/batch"
)

const (
	// SubjectRunCompleted carries a RunCompleted event after every finished run.
	SubjectRunCompleted = "tempo.run.completed"
	// SubjectRunRequested asks a serving tempo to start a run.
	SubjectRunRequested = "tempo.run.requested"
)

// RunCompleted is published when a run finishes and has been persisted.
type RunCompleted struct {
	RunID      uuid.UUID         `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	From       string            `json:"from,omitempty"`
	To         string            `json:"to,omitempty"`
	Counts     batch.Counts      `json:"counts"`
	Bands      []string          `json:"bands"`
	Overall    batch.DailyRecord `json:"overall"`
}

// NewRunCompleted builds the event for run.
func NewRunCompleted(run *batch.Run) RunCompleted {
	info := run.Info()
	return RunCompleted{
		RunID:      info.ID,
		StartedAt:  info.StartedAt,
		FinishedAt: info.FinishedAt,
		From:       info.From,
		To:         info.To,
		Counts:     info.Counts,
		Bands:      info.Bands,
		Overall:    info.Overall,
	}
}

// RunRequest is the payload of SubjectRunRequested. Empty bounds are open.
type RunRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// ParseRunRequest decodes a run request. An empty payload requests a run over
// every date.
func ParseRunRequest(data []byte) (RunRequest, error) {
	var req RunRequest
	if len(data) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return RunRequest{}, fmt.Errorf("parse run request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return RunRequest{}, err
	}
	return req, nil
}

// Validate checks both bounds are YYYY-MM-DD dates and in order.
func (r RunRequest) Validate() error {
	return batch.ValidateRange(r.From, r.To)
}

// Publisher is the part of Client the notifier needs.
type Publisher interface {
	PublishSync(ctx context.Context, subject string, data any) error
}

// RunNotifier publishes RunCompleted events.
type RunNotifier struct {
	pub    Publisher
	logger *slog.Logger
}

var _ batch.Notifier = (*RunNotifier)(nil)

func NewRunNotifier(pub Publisher, logger *slog.Logger) *RunNotifier {
	return &RunNotifier{pub: pub, logger: logger}
}

// NotifyRun publishes the run and waits for the server to acknowledge it, so
// a one-shot analyze does not exit with the event still buffered.
func (n *RunNotifier) NotifyRun(ctx context.Context, run *batch.Run) error {
	if err := n.pub.PublishSync(ctx, SubjectRunCompleted, NewRunCompleted(run)); err != nil {
		return fmt.Errorf("publish run completed: %w", err)
	}
	n.logger.Debug("published run completed", "run_id", run.ID)
	return nil
}

// TriggerFunc starts a run over [from, to].
type TriggerFunc func(ctx context.Context, from, to string) (*batch.Run, error)

// HandleRunRequests subscribes to SubjectRunRequested and calls trigger for
// every valid request.
func HandleRunRequests(ctx context.Context, c *Client, trigger TriggerFunc, logger *slog.Logger) error {
	return c.Subscribe(SubjectRunRequested, func(_ string, data []byte) {
		req, err := ParseRunRequest(data)
		if err != nil {
			logger.Warn("ignoring run request", "error", err)
			return
		}
		run, err := trigger(ctx, req.From, req.To)
		if err != nil {
			logger.Error("requested run failed", "from", req.From, "to", req.To, "error", err)
			return
		}
		logger.Info("requested run finished", "run_id", run.ID, "pairs", run.Counts.Pairs)
	})
}
