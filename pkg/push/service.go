// Package push delivers import completion notifications to a webhook
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RequestTimeout for webhook requests
const RequestTimeout = 10 * time.Second

// ErrMissingURL is returned when no webhook is configured
var ErrMissingURL = errors.New("webhook url is required")

// Message is the webhook body
type Message struct {
	Success bool `json:"success"`
}

// Service posts completion events to a single webhook
type Service struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewService creates a webhook notifier. A zero timeout uses RequestTimeout.
func NewService(url string, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = RequestTimeout
	}
	return &Service{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// WithHTTPClient replaces the HTTP client
func (s *Service) WithHTTPClient(c *http.Client) *Service {
	s.client = c
	return s
}

// Send posts msg to the webhook
func (s *Service) Send(ctx context.Context, msg Message) error {
	if s.url == "" {
		return ErrMissingURL
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("webhook rejected notification",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return fmt.Errorf("webhook failed with status: %d", resp.StatusCode)
	}

	return nil
}

// ImportCompleted sends the notification in the background so a slow
// webhook never holds up the import response.
func (s *Service) ImportCompleted(ctx context.Context, success bool) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		if err := s.Send(ctx, Message{Success: success}); err != nil {
			s.logger.Warn("failed to deliver import notification",
				slog.Bool("success", success),
				slog.Any("error", err),
			)
			return
		}
		s.logger.Debug("import notification delivered", slog.Bool("success", success))
	}()
}
