// Package relay implements the inbound message pipeline: filter, deduplicate,
// resolve the client, ask the assistant and send the reply back.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/chatrelay/internal/assistant"
	"github.com/ashureev/chatrelay/internal/domain"
)

// FallbackReply replaces the assistant answer when the run does not complete.
const FallbackReply = "Unable to get a response from the assistant."

const (
	msgClientUnresolved = "Could not identify or create client in Chat2Desk"
	msgDedupUnavailable = "Deduplication unavailable"
	defaultTransport    = "whatsapp"
)

// Deduplicator records message ids and reports first sightings.
type Deduplicator interface {
	MarkIfNew(ctx context.Context, id string) (bool, error)
}

// ClientResolver maps a phone number to a provider client id.
type ClientResolver interface {
	Resolve(ctx context.Context, phone string) (domain.ClientID, error)
}

// Assistant answers a single user message.
type Assistant interface {
	Ask(ctx context.Context, text string) (assistant.Reply, error)
}

// Sender delivers a message to a provider client.
type Sender interface {
	SendMessage(ctx context.Context, clientID domain.ClientID, text, transport string) error
}

// Journal records pipeline outcomes.
type Journal interface {
	RecordRelay(ctx context.Context, rec *domain.RelayRecord) error
}

// Options tune the pipeline.
type Options struct {
	Transport string
	// SendFallback delivers FallbackReply to the chat when the assistant fails.
	SendFallback bool
}

// Service runs the relay pipeline for one inbound event at a time. It is
// safe for concurrent use when its collaborators are.
type Service struct {
	dedup     Deduplicator
	clients   ClientResolver
	assistant Assistant
	sender    Sender
	journal   Journal
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a relay Service. A nil journal disables recording.
func NewService(dedup Deduplicator, clients ClientResolver, asst Assistant, sender Sender, journal Journal, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Transport == "" {
		opts.Transport = defaultTransport
	}
	return &Service{
		dedup:     dedup,
		clients:   clients,
		assistant: asst,
		sender:    sender,
		journal:   journal,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle processes one inbound event and returns the status reported to the
// provider. Upstream failures never surface as errors; they are logged and
// folded into the result.
func (s *Service) Handle(ctx context.Context, ev *domain.InboundEvent) domain.Result {
	if !ev.IsInbox() {
		s.logger.Info("Ignored non-inbox message", "message_id", ev.MessageID, "hook_type", ev.HookType)
		return domain.Ignored()
	}

	log := s.logger.With("message_id", ev.MessageID)

	fresh, err := s.dedup.MarkIfNew(ctx, ev.MessageID)
	switch {
	case err != nil && !fresh:
		log.Error("Failed to check message id", "error", err)
		return domain.Failed(msgDedupUnavailable)
	case err != nil:
		log.Warn("Message recorded but dedup trim failed", "error", err)
	case !fresh:
		log.Info("Duplicate message skipped")
		return domain.Skipped()
	}

	phone := ev.Client.Phone
	text := ev.MessageText()
	rec := &domain.RelayRecord{
		ID:        uuid.NewString(),
		MessageID: ev.MessageID,
		Phone:     phone,
	}
	log = log.With("relay_id", rec.ID, "phone", phone)

	clientID, err := s.clients.Resolve(ctx, phone)
	if err != nil {
		rec.Status = domain.StatusError
		rec.Error = err.Error()
		s.record(ctx, log, rec)
		return domain.Failed(msgClientUnresolved)
	}
	rec.ClientID = clientID

	reply, askErr := s.assistant.Ask(ctx, text)
	rec.RunStatus = reply.RunStatus
	answer := reply.Text
	if askErr != nil {
		log.Error("Assistant did not produce a reply", "run_status", reply.RunStatus, "error", askErr)
		rec.Error = askErr.Error()
		answer = FallbackReply
	}
	rec.Reply = answer

	if askErr == nil || s.opts.SendFallback {
		if err := s.sender.SendMessage(ctx, clientID, answer, s.opts.Transport); err != nil {
			log.Error("Failed to send reply", "client_id", clientID, "error", err)
			if rec.Error == "" {
				rec.Error = err.Error()
			}
		} else {
			log.Info("Reply sent", "client_id", clientID)
			rec.Delivered = true
		}
	}

	rec.Status = domain.StatusSent
	s.record(ctx, log, rec)
	return domain.Sent(answer)
}

func (s *Service) record(ctx context.Context, log *slog.Logger, rec *domain.RelayRecord) {
	if s.journal == nil {
		return
	}
	rec.CreatedAt = s.now().UTC()
	if err := s.journal.RecordRelay(ctx, rec); err != nil {
		log.Warn("Failed to record relay", "error", err)
	}
}
