// Package identity maps chat phone numbers to provider client identities.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/chatrelay/internal/domain"
	"github.com/ashureev/chatrelay/internal/provider"
)

// ErrNotAllowed is returned for phone numbers outside the allow-list.
var ErrNotAllowed = errors.New("phone number not allowed")

// Allowlist is a read-only set of permitted phone numbers.
type Allowlist struct {
	phones map[string]struct{}
}

// NewAllowlist builds an allow-list. Blank entries are ignored.
func NewAllowlist(phones []string) *Allowlist {
	a := &Allowlist{phones: make(map[string]struct{}, len(phones))}
	for _, p := range phones {
		p = strings.TrimSpace(p)
		if p != "" {
			a.phones[p] = struct{}{}
		}
	}
	return a
}

// Allowed reports whether phone may trigger the assistant.
func (a *Allowlist) Allowed(phone string) bool {
	if a == nil {
		return false
	}
	_, ok := a.phones[phone]
	return ok
}

// Len returns the number of permitted phone numbers.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.phones)
}

// ClientCreator creates provider-side client records.
type ClientCreator interface {
	CreateClient(ctx context.Context, phone, transport string) (domain.ClientID, error)
}

// Resolver returns the provider client id for a phone number, creating the
// client on first contact. Nothing is cached; every call asks the provider.
type Resolver struct {
	allow     *Allowlist
	clients   ClientCreator
	transport string
	logger    *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(allow *Allowlist, clients ClientCreator, transport string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if transport == "" {
		transport = "whatsapp"
	}
	return &Resolver{
		allow:     allow,
		clients:   clients,
		transport: transport,
		logger:    logger,
	}
}

// Resolve returns the client id for phone. Numbers outside the allow-list
// fail with ErrNotAllowed before any provider call.
func (r *Resolver) Resolve(ctx context.Context, phone string) (domain.ClientID, error) {
	if !r.allow.Allowed(phone) {
		r.logger.Info("Access denied for phone number", "phone", phone)
		return "", ErrNotAllowed
	}

	id, err := r.clients.CreateClient(ctx, phone, r.transport)
	if err == nil {
		return id, nil
	}

	var exists *provider.ClientExistsError
	if errors.As(err, &exists) {
		r.logger.Debug("Client already exists", "phone", phone, "client_id", exists.ClientID)
		return exists.ClientID, nil
	}

	r.logger.Error("Failed to create or find the client", "phone", phone, "error", err)
	return "", fmt.Errorf("resolve client for %s: %w", phone, err)
}
