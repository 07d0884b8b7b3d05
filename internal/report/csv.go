package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MikeSquared-Agency/tempo/internal/aggregate"
	"github.com/MikeSquared-Agency/tempo/internal/batch"
	"github.com/MikeSquared-Agency/tempo/internal/chat"
)

// Export file names inside a CSVSink directory.
const (
	PairsFile     = "response_pairs.csv"
	DailyFile     = "daily_stats.csv"
	CustomersFile = "customer_stats.csv"
)

// PairColumns is the header of the pair export.
var PairColumns = []string{
	"conversation_id",
	"customer_identity",
	"customer_message_id",
	"customer_text",
	"customer_time",
	"agent_message_id",
	"agent_text",
	"agent_time",
	"agent_name",
	"latency_seconds",
	"latency_minutes",
}

// CustomerColumns is the header of the customer export.
var CustomerColumns = []string{
	"conversation_id",
	"total_interactions",
	"min_seconds",
	"max_seconds",
	"avg_seconds",
	"median_seconds",
	"min_minutes",
	"max_minutes",
	"avg_minutes",
	"median_minutes",
}

// CSVSink writes the three result tables of a run into a directory.
type CSVSink struct {
	Dir string
}

var _ batch.Sink = (*CSVSink)(nil)

// NewCSVSink returns a sink that writes into dir.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{Dir: dir}
}

// SaveRun writes response_pairs.csv, daily_stats.csv and customer_stats.csv,
// replacing earlier exports.
func (s *CSVSink) SaveRun(_ context.Context, run *batch.Run) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := writeFile(filepath.Join(s.Dir, PairsFile), func(w io.Writer) error {
		return WritePairsCSV(w, run.Pairs)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(s.Dir, DailyFile), func(w io.Writer) error {
		return WriteDailyCSV(w, run.Summary)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(s.Dir, CustomersFile), func(w io.Writer) error {
		return WriteCustomersCSV(w, run.Summary)
	})
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// WritePairsCSV writes one row per response pair.
func WritePairsCSV(w io.Writer, pairs []chat.ResponsePair) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(PairColumns); err != nil {
		return err
	}
	for _, p := range pairs {
		record := []string{
			p.ConversationID(),
			p.Customer.Identity,
			p.Customer.ID,
			p.Customer.Text,
			p.Customer.Timestamp.Format(TimeLayout),
			p.Agent.ID,
			p.Agent.Text,
			p.Agent.Timestamp.Format(TimeLayout),
			p.Agent.DisplayName,
			formatFloat(p.LatencySeconds(), 2),
			formatFloat(p.LatencyMinutes(), 2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// DailyColumns returns the header of the daily export for the given bands.
func DailyColumns(bands aggregate.Bands) []string {
	cols := []string{"date", "total"}
	for i := 0; i < bands.Len(); i++ {
		label := bands.Label(i)
		cols = append(cols, label+"_count", label+"_percent")
	}
	return append(cols,
		"min_seconds", "max_seconds", "avg_seconds", "median_seconds",
		"slowest_conversation_id", "slowest_customer_time",
	)
}

// WriteDailyCSV writes one row per date followed by the overall row.
func WriteDailyCSV(w io.Writer, s aggregate.Summary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(DailyColumns(s.Bands)); err != nil {
		return err
	}
	rows := append(append([]aggregate.DateStats(nil), s.PerDate...), s.Overall)
	for _, d := range rows {
		record := []string{d.Date, strconv.Itoa(d.Total)}
		for i, n := range d.Counts {
			pct := NoData
			if p, err := d.Percent(i); err == nil {
				pct = formatFloat(p, 2)
			}
			record = append(record, strconv.Itoa(n), pct)
		}
		if d.Total == 0 {
			record = append(record, "", "", "", "", "", "")
		} else {
			record = append(record,
				seconds(d.Min), seconds(d.Max), seconds(d.Mean), seconds(d.Median),
				d.Slowest.ConversationID(), d.Slowest.Customer.Timestamp.Format(TimeLayout),
			)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCustomersCSV writes one row per conversation.
func WriteCustomersCSV(w io.Writer, s aggregate.Summary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CustomerColumns); err != nil {
		return err
	}
	for _, c := range s.PerCustomer {
		record := []string{
			c.ConversationID,
			strconv.Itoa(c.Total),
			seconds(c.Min), seconds(c.Max), seconds(c.Mean), seconds(c.Median),
			minutes(c.Min), minutes(c.Max), minutes(c.Mean), minutes(c.Median),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
