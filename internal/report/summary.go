package report

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/tempo/internal/aggregate"
	"github.com/MikeSquared-Agency/tempo/internal/batch"
)

// FormatRunSummary formats a run as a chat message grouped by date, using
// Slack mrkdwn emphasis.
func FormatRunSummary(run *batch.Run) string {
	var sb strings.Builder
	sb.WriteString("*Response Time Summary*\n")

	if len(run.Summary.PerDate) == 0 {
		sb.WriteString("\nNo responses in range.\n")
	}
	for _, d := range run.Summary.PerDate {
		fmt.Fprintf(&sb, "\n*%s* (%d responses)\n", d.Date, d.Total)
		writeDateDetail(&sb, d, run.Summary.Bands)
	}
	if len(run.Summary.PerDate) > 1 {
		fmt.Fprintf(&sb, "\n*Overall* (%d responses)\n", run.Summary.Overall.Total)
		writeDateDetail(&sb, run.Summary.Overall, run.Summary.Bands)
	}

	c := run.Counts
	fmt.Fprintf(&sb, "\n_%d conversations, %d failed, %d excluded, %d unanswered, %d unmatched agent replies_\n",
		c.Conversations, c.Failed, c.Excluded, c.Censored, c.UnmatchedAgents)
	return sb.String()
}

func writeDateDetail(sb *strings.Builder, d aggregate.DateStats, bands aggregate.Bands) {
	parts := make([]string, 0, len(d.Counts))
	for i, n := range d.Counts {
		parts = append(parts, fmt.Sprintf("%s: %d (%s)", bands.Label(i), n, percent(d, i)))
	}
	fmt.Fprintf(sb, "  - %s\n", strings.Join(parts, ", "))
	if d.Total > 0 {
		fmt.Fprintf(sb, "  - median %s, avg %s, max %s (%s)\n",
			humanDuration(d.Median), humanDuration(d.Mean), humanDuration(d.Max), d.Slowest.ConversationID())
	}
}
