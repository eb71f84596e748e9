package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// webhookTimeout bounds one delivery attempt.
const webhookTimeout = 10 * time.Second

var webhookClient = &http.Client{Timeout: webhookTimeout}

// deliverWebhooks posts a to every configured webhook target. Delivery
// failures are logged; alerting must never take the panel down.
func (e *Engine) deliverWebhooks(a Alert) {
	e.mu.Lock()
	targets := e.webhooks
	e.mu.Unlock()

	for _, w := range targets {
		url := w.URL()
		if url == "" {
			continue
		}
		var err error
		switch w.Type {
		case "slack":
			err = postJSON(url, slackPayload(a))
		default: // "http" and anything unrecognized: generic JSON POST
			err = postJSON(url, a)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", w.Type, "rule", a.Rule, "err", err)
		}
	}
}

// slackPayload wraps an alert in Slack's incoming-webhook text format.
func slackPayload(a Alert) map[string]string {
	return map[string]string{
		"text": fmt.Sprintf("[%s] %s on channel %q: %s (value %.4f)",
			a.Severity, a.Rule, a.Channel, a.Condition, a.Value),
	}
}

func postJSON(url string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := webhookClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
