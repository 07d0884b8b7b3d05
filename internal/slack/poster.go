package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/tempo/internal/batch"
	"github.com/MikeSquared-Agency/tempo/internal/report"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// maxFailuresListed caps the lines of the failure thread.
const maxFailuresListed = 20

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

var _ batch.Notifier = (*Poster)(nil)

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// NotifyRun posts the run summary to the channel. Conversation failures, if
// any, go to a threaded reply under the summary.
func (p *Poster) NotifyRun(ctx context.Context, run *batch.Run) error {
	text := report.FormatRunSummary(run)
	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": fmt.Sprintf("Run `%s` finished in %s", run.ID, run.Duration().Round(time.Millisecond)),
					},
				},
			},
		},
	})
	if err != nil {
		return err
	}
	p.logger.Info("posted run summary to slack", "ts", ts, "run_id", run.ID)

	if len(run.Failures) == 0 {
		return nil
	}
	if err := p.PostThread(ctx, ts, formatFailures(run.Failures)); err != nil {
		return fmt.Errorf("post failures: %w", err)
	}
	return nil
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	_, err := p.post(ctx, map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	return err
}

// post sends a chat.postMessage payload and returns the message timestamp.
func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("slack post: status %d", resp.StatusCode)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatFailures(failures []batch.Failure) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%d conversations failed*\n", len(failures))
	for i, f := range failures {
		if i == maxFailuresListed {
			fmt.Fprintf(&sb, "_and %d more_\n", len(failures)-maxFailuresListed)
			break
		}
		fmt.Fprintf(&sb, "• `%s`: %s\n", f.ConversationID, f.Err)
	}
	return sb.String()
}
