package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRunInProgress is returned by Scheduler.Trigger while another run is active.
var ErrRunInProgress = errors.New("batch: a run is already in progress")

// ValidateRange checks that non-empty bounds are YYYY-MM-DD dates with
// from <= to.
func ValidateRange(from, to string) error {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return fmt.Errorf("invalid date %q: %w", d, err)
		}
	}
	if from != "" && to != "" && from > to {
		return fmt.Errorf("from %s is after to %s", from, to)
	}
	return nil
}

// Scheduler serializes on-demand runs from the API and the message bus.
type Scheduler struct {
	runner  *Runner
	timeout time.Duration
	mu      sync.Mutex
}

// NewScheduler wraps runner. Each triggered run is bounded by timeout when it
// is positive.
func NewScheduler(runner *Runner, timeout time.Duration) *Scheduler {
	return &Scheduler{runner: runner, timeout: timeout}
}

// Trigger runs the batch over [from, to]. It fails fast with
// ErrRunInProgress instead of queueing behind an active run.
func (s *Scheduler) Trigger(ctx context.Context, from, to string) (*Run, error) {
	if err := ValidateRange(from, to); err != nil {
		return nil, err
	}
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.runner.WithRange(from, to).Run(ctx)
}
