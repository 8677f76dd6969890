package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/postvault/postvault/internal/transfer"
)

// Notifier delivers exactly one summary per publish run.
type Notifier interface {
	SendRunSummary(ctx context.Context, summary *transfer.RunSummary) error
}

// logNotifier is the fallback when no webhook is configured.
type logNotifier struct{}

func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) SendRunSummary(_ context.Context, summary *transfer.RunSummary) error {
	slog.Info("publish run finished",
		"due", summary.TotalDue,
		"published", len(summary.Successes()),
		"failed", len(summary.Failures()),
		"save_failed", summary.SaveFailed,
	)
	return nil
}

type webhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) Notifier {
	return &webhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (n *webhookNotifier) SendRunSummary(ctx context.Context, summary *transfer.RunSummary) error {
	succeeded := len(summary.Successes())
	failed := len(summary.Failures())

	payload := map[string]interface{}{
		"subject":    fmt.Sprintf("Publish run: %d published, %d failed", succeeded, failed),
		"totalDue":   summary.TotalDue,
		"published":  succeeded,
		"failed":     failed,
		"saveFailed": summary.SaveFailed,
		"results":    summary.Results,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code from webhook: %d", resp.StatusCode)
	}
	return nil
}
