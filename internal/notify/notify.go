// Package notify delivers fire-and-forget notifications for lifecycle
// transitions and sync failures. Delivery failures are logged and
// swallowed; they must never abort a sync pass.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Kind classifies a notification event.
type Kind string

const (
	KindLifecycleTransition Kind = "lifecycle_transition"
	KindSyncFailure         Kind = "sync_failure"
)

// Event is one notification.
type Event struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier is the collaborator contract. Notify must return quickly and
// never propagate delivery errors.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// LogNotifier writes notifications to the structured log. It is the
// default when no gateway is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// NewLogNotifier returns a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) {
	n.Logger.Info("notification", "kind", string(ev.Kind), "subject", ev.Subject, "body", ev.Body)
}

// WebhookNotifier posts events to an SMS-gateway-style webhook. The
// gateway contract is sendSMS(to, body): it accepts a JSON payload and
// returns a 2xx on acceptance. Sends run detached on their own short
// deadline so a slow gateway cannot hold a pass.
type WebhookNotifier struct {
	URL     string
	To      string
	Client  *http.Client
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewWebhookNotifier returns a webhook-backed notifier posting to url,
// addressed to the configured recipient.
func NewWebhookNotifier(url, to string, logger *slog.Logger) *WebhookNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		URL:     url,
		To:      to,
		Client:  &http.Client{},
		Logger:  logger,
		Timeout: 10 * time.Second,
	}
}

type webhookPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
	Kind string `json:"kind"`
}

func (n *WebhookNotifier) Notify(_ context.Context, ev Event) {
	payload, err := json.Marshal(webhookPayload{To: n.To, Body: ev.Body, Kind: string(ev.Kind)})
	if err != nil {
		n.Logger.Warn("notification payload marshal failed", "err", err)
		return
	}

	// Detached from the caller's context on purpose: the pass that
	// produced the event may finish (or fail) before delivery does.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
		if err != nil {
			n.Logger.Warn("notification request build failed", "err", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.Client.Do(req)
		if err != nil {
			n.Logger.Warn("notification delivery failed", "kind", string(ev.Kind), "err", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			n.Logger.Warn("notification rejected", "kind", string(ev.Kind), "status", resp.StatusCode)
		}
	}()
}
