package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/tempo/internal/aggregate"
	"github.com/MikeSquared-Agency/tempo/internal/batch"
)

// TextOptions controls RenderRun.
type TextOptions struct {
	Customers bool // include the per-customer table
	Failures  bool // list failed conversations
}

// RenderRun writes a human-readable report of run to w.
func RenderRun(w io.Writer, run *batch.Run, opts TextOptions) error {
	c := run.Counts
	rangeLabel := "all dates"
	if run.From != "" || run.To != "" {
		rangeLabel = fmt.Sprintf("%s .. %s", orDash(run.From), orDash(run.To))
	}

	header := []string{
		fmt.Sprintf("Run %s (%s, %s scope, gap %s)", run.ID, rangeLabel, run.Scope, run.Gap),
		fmt.Sprintf("Conversations: %d processed, %d skipped, %d failed of %d",
			c.Processed, c.Skipped, c.Failed, c.Conversations),
		fmt.Sprintf("Messages: %d (%d records, %d malformed, %d duplicates)",
			c.Messages, c.Records, c.Malformed, c.Duplicates),
		fmt.Sprintf("Pairs: %d  excluded: %d  anomalies: %d  unanswered: %d  unmatched agent replies: %d",
			c.Pairs, c.Excluded, c.Anomalies, c.Censored, c.UnmatchedAgents),
	}
	for _, line := range header {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := writeLines(w, dailyTable(run.Summary)); err != nil {
		return err
	}

	if run.Summary.Overall.Total > 0 {
		s := run.Summary.Overall.Slowest
		lines := []string{
			"",
			fmt.Sprintf("Longest response: %s in %s", humanDuration(s.Latency), s.ConversationID()),
			fmt.Sprintf("  customer %s  %s", s.Customer.Timestamp.Format(TimeLayout), truncate(s.Customer.Text, 60)),
			fmt.Sprintf("  agent    %s  %s (%s)", s.Agent.Timestamp.Format(TimeLayout), truncate(s.Agent.Text, 60), s.Agent.DisplayName),
		}
		if err := writeLines(w, lines); err != nil {
			return err
		}
	}

	if opts.Customers && len(run.Summary.PerCustomer) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := writeLines(w, customerTable(run.Summary)); err != nil {
			return err
		}
	}

	if opts.Failures && len(run.Failures) > 0 {
		if _, err := fmt.Fprintln(w, "\nFailed conversations:"); err != nil {
			return err
		}
		for _, f := range run.Failures {
			if _, err := fmt.Fprintf(w, "  %s: %s\n", f.ConversationID, f.Err); err != nil {
				return err
			}
		}
	}
	return nil
}

func dailyTable(s aggregate.Summary) []string {
	headers := []string{"Date", "Total"}
	headers = append(headers, s.Bands.Labels...)
	headers = append(headers, "Min", "Max", "Avg", "Median")

	right := make(map[int]bool, len(headers))
	for i := 1; i < len(headers); i++ {
		right[i] = true
	}

	rows := make([][]string, 0, len(s.PerDate)+1)
	for _, d := range s.PerDate {
		rows = append(rows, dailyRow(d))
	}
	rows = append(rows, dailyRow(s.Overall))
	return formatTable(headers, rows, right)
}

func dailyRow(d aggregate.DateStats) []string {
	row := []string{d.Date, strconv.Itoa(d.Total)}
	for i, n := range d.Counts {
		row = append(row, fmt.Sprintf("%d (%s)", n, percent(d, i)))
	}
	if d.Total == 0 {
		return append(row, "-", "-", "-", "-")
	}
	return append(row, humanDuration(d.Min), humanDuration(d.Max), humanDuration(d.Mean), humanDuration(d.Median))
}

func customerTable(s aggregate.Summary) []string {
	headers := []string{"Customer", "Total", "Min", "Max", "Avg", "Median"}
	right := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	rows := make([][]string, 0, len(s.PerCustomer))
	for _, c := range s.PerCustomer {
		rows = append(rows, []string{
			c.ConversationID,
			strconv.Itoa(c.Total),
			humanDuration(c.Min),
			humanDuration(c.Max),
			humanDuration(c.Mean),
			humanDuration(c.Median),
		})
	}
	return formatTable(headers, rows, right)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
