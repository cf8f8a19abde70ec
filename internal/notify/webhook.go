package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"net/http"
	"regexp"
	"time"

	"dealwatch/internal/metrics"
	"dealwatch/pkg/errors"
	"dealwatch/pkg/logger"
)

// Webhook posts match events as JSON to a Discord-compatible webhook URL.
// The payload is {"content": "<plain text>"}.
type Webhook struct {
	url   string
	httpc *http.Client
	log   *logger.Logger
}

// NewWebhook creates a webhook sink
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:   url,
		httpc: &http.Client{Timeout: 15 * time.Second},
		log:   logger.Get().With("component", "webhook_notifier"),
	}
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	text := html.UnescapeString(htmlTagRe.ReplaceAllString(FormatMessage(ev), ""))

	payload, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return errors.Wrap(err, "encode webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpc.Do(req)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("webhook", "error").Inc()
		return errors.Wrap(err, "post webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.NotificationsSent.WithLabelValues("webhook", "error").Inc()
		return errors.Newf("webhook returned status %d", resp.StatusCode)
	}

	metrics.NotificationsSent.WithLabelValues("webhook", "success").Inc()
	return nil
}
