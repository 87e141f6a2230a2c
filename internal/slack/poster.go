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

	"github.com/archanaanairr/vb6/internal/project"
)

// Poster sends conversion job summaries to a Slack incoming webhook.
type Poster struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

func NewPoster(webhookURL string, logger *slog.Logger) *Poster {
	return &Poster{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// PostJobSummary posts the outcome of one conversion run so the migration
// team sees failures without opening the API.
func (p *Poster) PostJobSummary(ctx context.Context, summary project.Summary, source, duration string) error {
	text := formatJobMessage(summary, source, duration)

	body, err := json.Marshal(map[string]any{
		"text": text,
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
						"text": "vb6 conversion service",
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	p.logger.Info("posted job summary to slack", "project", summary.ProjectName)
	return nil
}

func formatJobMessage(s project.Summary, source, duration string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Project:* %s (%s, %s)\n", s.ProjectName, source, duration)
	fmt.Fprintf(&sb, "*Namespace:* %s\n\n", s.Namespace)

	fmt.Fprintf(&sb, "*Converted: %d of %d files*\n", len(s.Successful), s.Total())

	if len(s.Failed) > 0 {
		fmt.Fprintf(&sb, "*Failed: %d*\n", len(s.Failed))
		for i, name := range s.Failed {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
		}
	}

	if len(s.Large) > 0 {
		fmt.Fprintf(&sb, "*Chunked large files: %d*\n", len(s.Large))
		for i, name := range s.Large {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
		}
	}

	if s.Total() == 0 {
		sb.WriteString("_No VB6 sources found in this upload._")
	}

	return sb.String()
}
