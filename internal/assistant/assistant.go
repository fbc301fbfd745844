// Package assistant runs a single-turn exchange against a hosted assistant.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Run statuses reported by the Assistants API.
const (
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusCancelling = "cancelling"
	StatusCompleted  = "completed"
)

// ErrRunNotCompleted is returned when a run ends in any status but completed.
var ErrRunNotCompleted = errors.New("assistant run did not complete")

// Run is the state of one assistant invocation.
type Run struct {
	ID     string
	Status string
}

// Active reports whether the run has not reached a terminal status yet.
func (r Run) Active() bool {
	switch r.Status {
	case StatusQueued, StatusInProgress, StatusCancelling:
		return true
	default:
		return false
	}
}

// Runner is the thread and run surface of the assistant API.
type Runner interface {
	CreateThread(ctx context.Context) (string, error)
	AddUserMessage(ctx context.Context, threadID, text string) error
	StartRun(ctx context.Context, threadID string) (Run, error)
	GetRun(ctx context.Context, threadID, runID string) (Run, error)
	// AssistantMessages returns the text of every assistant-authored turn.
	AssistantMessages(ctx context.Context, threadID string) ([]string, error)
}

// Reply is the outcome of one exchange.
type Reply struct {
	Text      string
	ThreadID  string
	RunStatus string
}

// Service asks the assistant one question per fresh thread.
type Service struct {
	runner Runner
	poller *Poller
	logger *slog.Logger
}

// NewService creates a Service. A nil poller polls once per second without bound.
func NewService(runner Runner, poller *Poller, logger *slog.Logger) *Service {
	if poller == nil {
		poller = DefaultPoller()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner: runner,
		poller: poller,
		logger: logger,
	}
}

// Ask posts text as the only user turn of a new thread, waits for the run to
// finish and returns the assistant turns with annotations stripped, joined
// by single spaces. A run that ends in any status other than completed
// yields ErrRunNotCompleted; the returned Reply still carries that status.
func (s *Service) Ask(ctx context.Context, text string) (Reply, error) {
	threadID, err := s.runner.CreateThread(ctx)
	if err != nil {
		return Reply{}, err
	}
	reply := Reply{ThreadID: threadID}

	if err := s.runner.AddUserMessage(ctx, threadID, text); err != nil {
		return reply, err
	}

	run, err := s.runner.StartRun(ctx, threadID)
	if err != nil {
		return reply, err
	}
	s.logger.Debug("Assistant run started", "thread_id", threadID, "run_id", run.ID, "status", run.Status)

	if run.Active() {
		err = s.poller.Until(ctx, func(ctx context.Context) (bool, error) {
			next, err := s.runner.GetRun(ctx, threadID, run.ID)
			if err != nil {
				return false, err
			}
			run = next
			return !run.Active(), nil
		})
		reply.RunStatus = run.Status
		if err != nil {
			return reply, fmt.Errorf("wait for run %s: %w", run.ID, err)
		}
	}
	reply.RunStatus = run.Status

	if run.Status != StatusCompleted {
		return reply, fmt.Errorf("%w: status %s", ErrRunNotCompleted, run.Status)
	}

	turns, err := s.runner.AssistantMessages(ctx, threadID)
	if err != nil {
		return reply, err
	}
	cleaned := make([]string, 0, len(turns))
	for _, turn := range turns {
		cleaned = append(cleaned, StripAnnotations(turn))
	}
	reply.Text = strings.Join(cleaned, " ")
	return reply, nil
}
