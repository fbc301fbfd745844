package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/chatrelay/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RelayLister reads recent journal entries.
type RelayLister interface {
	ListRecent(ctx context.Context, limit int) ([]*domain.RelayRecord, error)
}

// JournalHandler exposes the relay journal.
type JournalHandler struct {
	journal RelayLister
}

// NewJournalHandler creates a JournalHandler.
func NewJournalHandler(journal RelayLister) *JournalHandler {
	return &JournalHandler{journal: journal}
}

// RegisterRoutes registers journal routes.
func (h *JournalHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/relays", h.List)
	})
}

// List returns the most recent relay records, newest first.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := h.journal.ListRecent(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list relays", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list relays")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"relays": records,
		"count":  len(records),
	})
}
