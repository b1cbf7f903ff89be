package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"reseller-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*EmailNotifier)(nil)

// EmailNotifier posts messages to a send-email HTTP function.
type EmailNotifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewEmailNotifier(endpoint, apiKey string) (*EmailNotifier, error) {
	if endpoint == "" {
		return nil, errors.New("email endpoint empty")
	}
	return &EmailNotifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Notify(ctx context.Context, kind string, to adapter.Recipient, data map[string]interface{}) error {
	if to.Email == "" {
		return nil
	}
	subject, body := render(kind, to.Name, data)
	payload := map[string]any{
		"to":      to.Email,
		"subject": subject,
		"text":    body,
		"type":    kind,
		"data":    data,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send-email returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
