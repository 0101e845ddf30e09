package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/zsprackett/audioid-web/internal/events"
)

// Config holds notification settings.
type Config struct {
	Enabled bool     `json:"enabled"`
	Webhook string   `json:"webhook"`
	NtfyURL string   `json:"ntfy"`
	Labels  []string `json:"labels"` // empty means every label
}

// Notifier posts webhook and ntfy messages when a new event starts.
type Notifier struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	report func(channel string, err error)
}

// New returns a Notifier with the given config.
func New(cfg Config, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// OnResult registers a callback invoked after every delivery attempt.
func (n *Notifier) OnResult(fn func(channel string, err error)) {
	n.report = fn
}

// Wants reports whether an event with this label should be announced.
func (n *Notifier) Wants(label string) bool {
	if !n.cfg.Enabled {
		return false
	}
	if n.cfg.Webhook == "" && n.cfg.NtfyURL == "" {
		return false
	}
	return len(n.cfg.Labels) == 0 || slices.Contains(n.cfg.Labels, label)
}

// Notify delivers e to the configured endpoints. It blocks for the HTTP
// round trips; callers on a hot path run it on its own goroutine.
func (n *Notifier) Notify(e events.Event) {
	if !n.Wants(e.Label) {
		return
	}
	if n.cfg.Webhook != "" {
		n.done("webhook", n.sendWebhook(e))
	}
	if n.cfg.NtfyURL != "" {
		n.done("ntfy", n.sendNtfy(e))
	}
}

func (n *Notifier) done(channel string, err error) {
	if err != nil {
		n.logger.Warn("notify: "+channel+" failed", "err", err)
	}
	if n.report != nil {
		n.report(channel, err)
	}
}

type webhookPayload struct {
	Type      string   `json:"type"`
	Label     string   `json:"label"`
	Time      *float64 `json:"time"`
	Timestamp string   `json:"timestamp"`
}

func (n *Notifier) sendWebhook(e events.Event) error {
	payload := webhookPayload{
		Type:      e.Type,
		Label:     e.Label,
		Timestamp: e.Created.UTC().Format(time.RFC3339),
	}
	if !math.IsNaN(e.Time) {
		t := e.Time
		payload.Time = &t
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return n.post(n.cfg.Webhook, data)
}

type ntfyPayload struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

func (n *Notifier) sendNtfy(e events.Event) error {
	payload := ntfyPayload{
		Title:    fmt.Sprintf("%s: %s", e.Label, e.Type),
		Message:  fmt.Sprintf("%s detected at %s", e.Label, e.Created.Format("15:04:05")),
		Priority: 3,
		Tags:     []string{"loud_sound"},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return n.post(n.cfg.NtfyURL, data)
}

func (n *Notifier) post(url string, body []byte) error {
	resp, err := n.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
