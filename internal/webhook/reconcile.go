// Package webhook keeps the provider's webhook subscription pointed at this service.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/chatrelay/internal/provider"
)

// ErrNoURL is returned by Sync when no public URL is configured.
var ErrNoURL = errors.New("webhook url not configured")

// Events subscribed on every registration.
var Events = []string{"inbox", "outbox"}

// API is the subscription surface of the provider.
type API interface {
	ListWebhooks(ctx context.Context) ([]provider.Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
	CreateWebhook(ctx context.Context, req provider.WebhookRequest) error
}

// Reconciler replaces any subscription for URL with a fresh one.
type Reconciler struct {
	api    API
	url    string
	name   string
	logger *slog.Logger
}

// NewReconciler creates a Reconciler for the given public URL and name.
func NewReconciler(api API, url, name string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{api: api, url: url, name: name, logger: logger}
}

// Sync lists subscriptions, deletes those whose URL matches, then creates a
// new one for the inbox and outbox events. Running it twice leaves exactly
// one matching subscription. A failed listing skips the deletes but still
// registers; the listing error is returned joined with any create error.
func (r *Reconciler) Sync(ctx context.Context) error {
	if r.url == "" {
		r.logger.Warn("Webhook sync skipped: no public URL configured")
		return ErrNoURL
	}

	hooks, listErr := r.api.ListWebhooks(ctx)
	if listErr != nil {
		r.logger.Error("Failed to list webhooks, registering without cleanup", "error", listErr)
		listErr = fmt.Errorf("list webhooks: %w", listErr)
	}

	for _, h := range hooks {
		if h.URL != r.url {
			continue
		}
		if err := r.api.DeleteWebhook(ctx, h.ID.String()); err != nil {
			r.logger.Error("Failed to delete stale webhook", "webhook_id", h.ID.String(), "error", err)
			continue
		}
		r.logger.Info("Deleted stale webhook", "webhook_id", h.ID.String())
	}

	req := provider.WebhookRequest{URL: r.url, Name: r.name, Events: Events}
	var createErr error
	if err := r.api.CreateWebhook(ctx, req); err != nil {
		createErr = fmt.Errorf("create webhook: %w", err)
	} else {
		r.logger.Info("Webhook registered", "url", r.url, "name", r.name)
	}

	if err := errors.Join(listErr, createErr); err != nil {
		return fmt.Errorf("sync webhook: %w", err)
	}
	return nil
}
