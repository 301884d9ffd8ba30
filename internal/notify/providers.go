package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrProviderFailure = errors.New("provider failure")

type Provider interface {
	Send(ctx context.Context, message, recipient string) error
}

type ProviderConfig struct {
	Kind         string
	WebhookURL   string
	WebhookToken string
}

func NewProvider(cfg ProviderConfig, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Kind {
	case "", "stub", "log":
		return logProvider{logger: logger}
	case "noop":
		return noopProvider{}
	case "fail":
		return failProvider{}
	case "webhook":
		if cfg.WebhookURL == "" {
			logger.Warn("webhook provider selected without NOTIF_WEBHOOK_URL, logging instead")
			return logProvider{logger: logger}
		}
		return newWebhookProvider(cfg.WebhookURL, cfg.WebhookToken)
	default:
		if strings.HasPrefix(cfg.Kind, "http://") || strings.HasPrefix(cfg.Kind, "https://") {
			return newWebhookProvider(cfg.Kind, cfg.WebhookToken)
		}
		return logProvider{logger: logger}
	}
}

type logProvider struct {
	logger *slog.Logger
}

func (p logProvider) Send(ctx context.Context, message, recipient string) error {
	p.logger.InfoContext(ctx, "notification", "channel", "email", "recipient", recipient, "message", message)
	return nil
}

type noopProvider struct{}

func (noopProvider) Send(ctx context.Context, message, recipient string) error {
	return nil
}

type failProvider struct{}

func (failProvider) Send(ctx context.Context, message, recipient string) error {
	return ErrProviderFailure
}

type webhookProvider struct {
	url    string
	token  string
	client *http.Client
}

func newWebhookProvider(url, token string) webhookProvider {
	return webhookProvider{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (p webhookProvider) Send(ctx context.Context, message, recipient string) error {
	body, err := json.Marshal(map[string]string{
		"channel":   "email",
		"recipient": recipient,
		"message":   message,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook returned %d", ErrProviderFailure, resp.StatusCode)
	}
	return nil
}
