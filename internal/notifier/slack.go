package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/dealscan/internal/model"
)

// maxListed caps how many interesting companies one Slack message lists.
const maxListed = 10

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier sends run summaries to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each run summary to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify posts the summary as a single Block Kit message.
// A 429 response is retried once after the Retry-After delay.
func (s *SlackNotifier) Notify(summary model.Summary) error {
	body, err := json.Marshal(buildPayload(summary))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		s.logger.Info("slack summary sent", "run_id", summary.RunID, "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack summary sent", "run_id", summary.RunID)
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a dummy run summary to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	rec := model.CompanyRecord{
		Line:           2,
		Name:           "Dealscan Test Co",
		FoundedYear:    time.Now().Year() - 2,
		TotalEmployees: 35,
		Headquarters:   "Toronto, Canada",
		Industry:       "Software",
		Description:    "Test notification, integration verified",
	}
	interesting := model.Outcome{
		Row:    model.Row{Record: rec},
		Status: model.StatusOK,
		Result: &model.EnrichmentResult{
			GrowthPotential: 8,
			RiskLevel:       3,
			KeyStrengths:    []string{"Integration verified"},
			Classification:  "SaaS",
		},
		Interesting: true,
	}
	return n.Notify(model.Summary{
		RunID:       "test-run",
		Input:       "test.csv",
		Output:      "test_enriched.csv",
		StartedAt:   time.Now(),
		Total:       1,
		ByStatus:    map[model.Status]int{model.StatusOK: 1},
		Interesting: []model.Outcome{interesting},
	})
}

func buildPayload(s model.Summary) slackPayload {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("📊 Dealscan run: %d companies", s.Total)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Enriched:*\n%d", s.Succeeded())},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Failed:*\n%d", s.Failed())},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Interesting:*\n%d (%.1f%%)", len(s.Interesting), s.InterestingPct())},
				{Type: "mrkdwn", Text: "*Output:*\n" + s.Output},
			},
		},
	}

	if len(s.Interesting) > 0 {
		var b strings.Builder
		b.WriteString("*Interesting companies*")
		for i, o := range s.Interesting {
			if i == maxListed {
				fmt.Fprintf(&b, "\n…and %d more", len(s.Interesting)-maxListed)
				break
			}
			fmt.Fprintf(&b, "\n• *%s*", o.Row.Record.Name)
			if o.Result != nil {
				fmt.Fprintf(&b, "  %s  growth %d/10  risk %d/10",
					o.Result.Classification, o.Result.GrowthPotential, o.Result.RiskLevel)
			}
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: b.String()},
		})
	}

	var failures []string
	for _, st := range failureStatuses {
		if c := s.ByStatus[st]; c > 0 {
			failures = append(failures, fmt.Sprintf("%s: %d", st, c))
		}
	}
	if len(failures) > 0 {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: strings.Join(failures, "  ·  ")}},
		})
	}

	blocks = append(blocks, slackBlock{Type: "divider"})
	return slackPayload{Blocks: blocks}
}
