package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PushSender delivers push notifications to registered device tokens.
// Delivery is best-effort: a dead token must never fail the caller.
type PushSender interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// ExpoPushAdapter sends notifications through the Expo push service.
type ExpoPushAdapter struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewExpoPushAdapter creates an Expo push adapter.
func NewExpoPushAdapter(baseURL string, timeout time.Duration, logger *zap.Logger) *ExpoPushAdapter {
	return &ExpoPushAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type expoPushMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound"`
}

// Send posts one message per token. Individual token failures are logged
// and skipped so one stale registration cannot block the rest.
func (a *ExpoPushAdapter) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	for _, token := range tokens {
		msg := expoPushMessage{To: token, Title: title, Body: body, Data: data, Sound: "default"}
		if err := a.sendOne(ctx, msg); err != nil {
			a.logger.Warn("push delivery failed",
				zap.String("token", token),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (a *ExpoPushAdapter) sendOne(ctx context.Context, msg expoPushMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

var _ PushSender = (*ExpoPushAdapter)(nil)

// NoopPushSender discards every push. Used when no push credentials are set.
type NoopPushSender struct{}

// Send drops the message.
func (NoopPushSender) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	return nil
}

var _ PushSender = (*NoopPushSender)(nil)
