package batch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tempo/internal/aggregate"
)

// ErrNoRuns is returned by a Reader that holds no completed run.
var ErrNoRuns = errors.New("batch: no runs recorded")

// Reader reads persisted runs back. The Postgres and SQLite stores implement it.
type Reader interface {
	LatestRun(ctx context.Context) (*RunInfo, error)
	ListDailyStats(ctx context.Context, runID uuid.UUID, from, to string) ([]DailyRecord, error)
	ListCustomerStats(ctx context.Context, runID uuid.UUID) ([]CustomerRecord, error)
}

// RunInfo is the persisted header of a run.
type RunInfo struct {
	ID         uuid.UUID   `json:"id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	From       string      `json:"from,omitempty"`
	To         string      `json:"to,omitempty"`
	Scope      string      `json:"scope"`
	GapSeconds int64       `json:"gap_seconds"`
	Bands      []string    `json:"bands"`
	Counts     Counts      `json:"counts"`
	Overall    DailyRecord `json:"overall"`
	Failures   []Failure   `json:"failures,omitempty"`
}

// DailyRecord is the flat, persisted form of aggregate.DateStats.
type DailyRecord struct {
	Date                  string  `json:"date"`
	Total                 int     `json:"total"`
	Counts                []int   `json:"counts"`
	MinSeconds            float64 `json:"min_seconds"`
	MaxSeconds            float64 `json:"max_seconds"`
	AvgSeconds            float64 `json:"avg_seconds"`
	MedianSeconds         float64 `json:"median_seconds"`
	SlowestConversationID string  `json:"slowest_conversation_id,omitempty"`
}

// CustomerRecord is the flat, persisted form of aggregate.CustomerStats.
type CustomerRecord struct {
	ConversationID string  `json:"conversation_id"`
	Total          int     `json:"total_interactions"`
	MinSeconds     float64 `json:"min_seconds"`
	MaxSeconds     float64 `json:"max_seconds"`
	AvgSeconds     float64 `json:"avg_seconds"`
	MedianSeconds  float64 `json:"median_seconds"`
}

// Info returns the persisted header of r.
func (r *Run) Info() RunInfo {
	return RunInfo{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		From:       r.From,
		To:         r.To,
		Scope:      r.Scope,
		GapSeconds: int64(r.Gap / time.Second),
		Bands:      r.Summary.Bands.Labels,
		Counts:     r.Counts,
		Overall:    NewDailyRecord(r.Summary.Overall),
		Failures:   r.Failures,
	}
}

// DailyRecords flattens the per-date stats of r.
func (r *Run) DailyRecords() []DailyRecord {
	out := make([]DailyRecord, 0, len(r.Summary.PerDate))
	for _, d := range r.Summary.PerDate {
		out = append(out, NewDailyRecord(d))
	}
	return out
}

// CustomerRecords flattens the per-customer stats of r.
func (r *Run) CustomerRecords() []CustomerRecord {
	out := make([]CustomerRecord, 0, len(r.Summary.PerCustomer))
	for _, c := range r.Summary.PerCustomer {
		out = append(out, CustomerRecord{
			ConversationID: c.ConversationID,
			Total:          c.Total,
			MinSeconds:     c.Min.Seconds(),
			MaxSeconds:     c.Max.Seconds(),
			AvgSeconds:     c.Mean.Seconds(),
			MedianSeconds:  c.Median.Seconds(),
		})
	}
	return out
}

// NewDailyRecord flattens d.
func NewDailyRecord(d aggregate.DateStats) DailyRecord {
	rec := DailyRecord{
		Date:          d.Date,
		Total:         d.Total,
		Counts:        append([]int(nil), d.Counts...),
		MinSeconds:    d.Min.Seconds(),
		MaxSeconds:    d.Max.Seconds(),
		AvgSeconds:    d.Mean.Seconds(),
		MedianSeconds: d.Median.Seconds(),
	}
	if d.Total > 0 {
		rec.SlowestConversationID = d.Slowest.ConversationID()
	}
	return rec
}
