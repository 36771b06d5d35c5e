// Package notification delivers human-readable alerts about ticket events.
// Delivery is best effort: callers enqueue and move on.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notification is a single alert addressed to one recipient.
type Notification struct {
	To      string `json:"to"`
	Channel string `json:"channel"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Sink delivers notifications to an external system.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the structured log. It stands in for an
// email or SMS gateway.
type LogSink struct {
	logger *zap.Logger
	from   string
}

// NewLogSink builds a log sink.
func NewLogSink(logger *zap.Logger, from string) *LogSink {
	return &LogSink{logger: logger, from: from}
}

// Send implements Sink.
func (s *LogSink) Send(_ context.Context, n Notification) error {
	s.logger.Info("notification",
		zap.String("from", s.from),
		zap.String("to", n.To),
		zap.String("channel", n.Channel),
		zap.String("subject", n.Subject),
		zap.String("message", n.Message))
	return nil
}

// WebhookSink posts notifications as JSON to a configured URL.
type WebhookSink struct {
	client *resty.Client
	url    string
}

// NewWebhookSink builds a webhook sink with the given request timeout.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &WebhookSink{client: client, url: url}
}

// Send implements Sink.
func (s *WebhookSink) Send(ctx context.Context, n Notification) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(n).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook responded %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// MultiSink fans out to every sink and joins their errors.
type MultiSink []Sink

// Send implements Sink.
func (m MultiSink) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
