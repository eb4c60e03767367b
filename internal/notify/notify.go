// Package notify tells users their analysis is ready.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"sentiment_research/internal/metrics"
)

// Message represents an outbound notification.
type Message struct {
	Destination string `json:"destination"`
	Text        string `json:"text"`
}

// Notifier delivers messages to a sink.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// ReadyMessage is the text sent when a job completes.
func ReadyMessage(query string) string {
	return fmt.Sprintf("Analysis ready for '%s'.", query)
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n LogNotifier) Notify(_ context.Context, msg Message) error {
	n.Log.WithField("destination", msg.Destination).Info(msg.Text)
	metrics.NotificationsSent.WithLabelValues("log", "ok").Inc()
	return nil
}

// WebhookNotifier posts the message as JSON to a URL.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (n *WebhookNotifier) Notify(ctx context.Context, msg Message) error {
	buf, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("webhook", "error").Inc()
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.NotificationsSent.WithLabelValues("webhook", "error").Inc()
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	metrics.NotificationsSent.WithLabelValues("webhook", "ok").Inc()
	return nil
}

// Multi fans a message out to every notifier and returns the first error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// New returns the log notifier plus a webhook when url is set.
func New(url string, log logrus.FieldLogger) Notifier {
	n := Multi{LogNotifier{Log: log.WithField("component", "notify")}}
	if url != "" {
		n = append(n, NewWebhookNotifier(url))
	}
	return n
}
