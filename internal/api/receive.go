package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/chatrelay/internal/domain"
)

const msgInvalidBody = "Invalid request body"

// Relayer runs the relay pipeline for one event.
type Relayer interface {
	Handle(ctx context.Context, ev *domain.InboundEvent) domain.Result
}

// ReceiveHandler accepts provider webhook deliveries.
type ReceiveHandler struct {
	relay  Relayer
	logger *slog.Logger
}

// NewReceiveHandler creates a ReceiveHandler.
func NewReceiveHandler(relay Relayer, logger *slog.Logger) *ReceiveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiveHandler{relay: relay, logger: logger}
}

// RegisterRoutes registers the webhook endpoint with and without the trailing slash.
func (h *ReceiveHandler) RegisterRoutes(r chi.Router) {
	r.Post("/receive-message/", h.Receive)
	r.Post("/receive-message", h.Receive)
}

// Receive decodes the event and runs the pipeline. The response is always
// 200; outcomes are carried in the body's status field. The pipeline is
// detached from the request context so a provider disconnect does not
// abort a relay that is already underway.
func (h *ReceiveHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var ev domain.InboundEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		h.logger.Warn("Failed to decode webhook body", "error", err)
		JSON(w, http.StatusOK, domain.Failed(msgInvalidBody))
		return
	}

	result := h.relay.Handle(context.WithoutCancel(r.Context()), &ev)
	JSON(w, http.StatusOK, result)
}
