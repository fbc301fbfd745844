package assistant

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const roleAssistant = "assistant"

// OpenAIRunner drives the OpenAI Assistants thread and run endpoints.
type OpenAIRunner struct {
	client      openai.Client
	assistantID string
}

// NewOpenAIRunner creates a runner bound to one assistant. The SDK's own
// retries are disabled; failures surface to the caller as they happen.
func NewOpenAIRunner(httpClient *http.Client, apiKey, baseURL, assistantID string) *OpenAIRunner {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIRunner{
		client:      openai.NewClient(opts...),
		assistantID: assistantID,
	}
}

// CreateThread opens an empty thread.
func (r *OpenAIRunner) CreateThread(ctx context.Context) (string, error) {
	thread, err := r.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

// AddUserMessage appends a user turn to the thread.
func (r *OpenAIRunner) AddUserMessage(ctx context.Context, threadID, text string) error {
	_, err := r.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return fmt.Errorf("add message to thread %s: %w", threadID, err)
	}
	return nil
}

// StartRun runs the configured assistant on the thread.
func (r *OpenAIRunner) StartRun(ctx context.Context, threadID string) (Run, error) {
	run, err := r.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: r.assistantID,
	})
	if err != nil {
		return Run{}, fmt.Errorf("start run on thread %s: %w", threadID, err)
	}
	return Run{ID: run.ID, Status: string(run.Status)}, nil
}

// GetRun fetches the current run state.
func (r *OpenAIRunner) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := r.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return Run{ID: run.ID, Status: string(run.Status)}, nil
}

// AssistantMessages lists the thread in the API's default order and keeps
// the text parts of assistant turns. Each turn's parts are concatenated.
func (r *OpenAIRunner) AssistantMessages(ctx context.Context, threadID string) ([]string, error) {
	page, err := r.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{})
	if err != nil {
		return nil, fmt.Errorf("list messages of thread %s: %w", threadID, err)
	}

	var turns []string
	for _, msg := range page.Data {
		if string(msg.Role) != roleAssistant {
			continue
		}
		var b strings.Builder
		for _, part := range msg.Content {
			if part.Type == "text" {
				b.WriteString(part.Text.Value)
			}
		}
		turns = append(turns, b.String())
	}
	return turns, nil
}
