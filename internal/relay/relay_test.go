package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/chatrelay/internal/assistant"
	"github.com/ashureev/chatrelay/internal/dedup"
	"github.com/ashureev/chatrelay/internal/domain"
	"github.com/ashureev/chatrelay/internal/identity"
	"github.com/ashureev/chatrelay/internal/provider"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeResolver struct {
	calls atomic.Int32
	id    domain.ClientID
	err   error
}

func (f *fakeResolver) Resolve(context.Context, string) (domain.ClientID, error) {
	f.calls.Add(1)
	return f.id, f.err
}

type fakeAssistant struct {
	calls atomic.Int32
	reply assistant.Reply
	err   error
	gate  chan struct{}
}

func (f *fakeAssistant) Ask(context.Context, string) (assistant.Reply, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.reply, f.err
}

type sentMessage struct {
	ClientID  domain.ClientID
	Text      string
	Transport string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, clientID domain.ClientID, text, transport string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ClientID: clientID, Text: text, Transport: transport})
	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeJournal struct {
	mu      sync.Mutex
	records []domain.RelayRecord
}

func (f *fakeJournal) RecordRelay(_ context.Context, rec *domain.RelayRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

type failingDedup struct{ fresh bool }

func (f failingDedup) MarkIfNew(context.Context, string) (bool, error) {
	return f.fresh, errors.New("redis: connection refused")
}

func inbox(id, phone, text string) *domain.InboundEvent {
	return &domain.InboundEvent{
		MessageID: id,
		HookType:  domain.HookInbox,
		Client:    domain.EventPeer{Phone: phone},
		Text:      &text,
	}
}

type fixture struct {
	resolver  *fakeResolver
	assistant *fakeAssistant
	sender    *fakeSender
	journal   *fakeJournal
	svc       *Service
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		resolver: &fakeResolver{id: "42"},
		assistant: &fakeAssistant{reply: assistant.Reply{
			Text:      "Hi there",
			RunStatus: assistant.StatusCompleted,
		}},
		sender:  &fakeSender{},
		journal: &fakeJournal{},
	}
	f.svc = NewService(dedup.NewMemorySet(dedup.DefaultCapacity), f.resolver, f.assistant, f.sender, f.journal, opts, discard)
	return f
}

func TestHandleIgnoresNonInbox(t *testing.T) {
	t.Parallel()

	for _, hook := range []domain.HookType{domain.HookOutbox, "delivery", ""} {
		f := newFixture(Options{})
		ev := inbox("m1", "77073200049", "hello")
		ev.HookType = hook

		got := f.svc.Handle(context.Background(), ev)
		if got.Status != domain.StatusIgnored {
			t.Errorf("hook %q: expected ignored, got %s", hook, got.Status)
		}
		if f.resolver.calls.Load() != 0 || f.assistant.calls.Load() != 0 || f.sender.count() != 0 {
			t.Errorf("hook %q: ignored event reached a collaborator", hook)
		}
		if len(f.journal.records) != 0 {
			t.Errorf("hook %q: ignored event was journaled", hook)
		}
	}
}

func TestHandleSkipsDuplicate(t *testing.T) {
	t.Parallel()

	f := newFixture(Options{})
	ctx := context.Background()

	if got := f.svc.Handle(ctx, inbox("m1", "77073200049", "hello")); got.Status != domain.StatusSent {
		t.Fatalf("expected first delivery to be sent, got %+v", got)
	}
	got := f.svc.Handle(ctx, inbox("m1", "77073200049", "hello"))
	if got.Status != domain.StatusSkipped || got.Message != "Duplicate message, processing skipped." {
		t.Fatalf("expected skipped, got %+v", got)
	}
	if f.assistant.calls.Load() != 1 || f.sender.count() != 1 {
		t.Errorf("duplicate triggered extra work: %d asks, %d sends", f.assistant.calls.Load(), f.sender.count())
	}
}

func TestHandleSkipsDuplicateWhileFirstInFlight(t *testing.T) {
	t.Parallel()

	f := newFixture(Options{})
	f.assistant.gate = make(chan struct{})
	ctx := context.Background()

	done := make(chan domain.Result, 1)
	go func() { done <- f.svc.Handle(ctx, inbox("m1", "77073200049", "hello")) }()

	deadline := time.Now().Add(2 * time.Second)
	for f.assistant.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first delivery never reached the assistant")
		}
		time.Sleep(time.Millisecond)
	}

	if got := f.svc.Handle(ctx, inbox("m1", "77073200049", "hello")); got.Status != domain.StatusSkipped {
		t.Fatalf("expected concurrent duplicate to be skipped, got %+v", got)
	}

	close(f.assistant.gate)
	if got := <-done; got.Status != domain.StatusSent {
		t.Fatalf("expected first delivery to be sent, got %+v", got)
	}
	if f.assistant.calls.Load() != 1 {
		t.Errorf("expected a single assistant call, got %d", f.assistant.calls.Load())
	}
}

func TestHandleDeniedPhone(t *testing.T) {
	t.Parallel()

	creator := &countingCreator{}
	resolver := identity.NewResolver(identity.NewAllowlist([]string{"77073200049"}), creator, "whatsapp", discard)
	asst := &fakeAssistant{}
	sender := &fakeSender{}
	journal := &fakeJournal{}
	svc := NewService(dedup.NewMemorySet(10), resolver, asst, sender, journal, Options{}, discard)

	got := svc.Handle(context.Background(), inbox("m1", "10000000000", "hello"))
	if got.Status != domain.StatusError || got.Message != "Could not identify or create client in Chat2Desk" {
		t.Fatalf("expected client error, got %+v", got)
	}
	if creator.calls.Load() != 0 || asst.calls.Load() != 0 || sender.count() != 0 {
		t.Error("denied phone must not reach the provider or the assistant")
	}
	if len(journal.records) != 1 || journal.records[0].Status != domain.StatusError {
		t.Errorf("expected one error record, got %+v", journal.records)
	}
}

type countingCreator struct{ calls atomic.Int32 }

func (c *countingCreator) CreateClient(context.Context, string, string) (domain.ClientID, error) {
	c.calls.Add(1)
	return "1", nil
}

func TestHandleFallbackOnFailedRun(t *testing.T) {
	t.Parallel()

	f := newFixture(Options{})
	f.assistant.reply = assistant.Reply{RunStatus: "failed"}
	f.assistant.err = assistant.ErrRunNotCompleted

	got := f.svc.Handle(context.Background(), inbox("m1", "77073200049", "hello"))
	if got.Status != domain.StatusSent || got.Response != FallbackReply {
		t.Fatalf("expected fallback reply, got %+v", got)
	}
	if f.sender.count() != 0 {
		t.Error("fallback must not be delivered unless enabled")
	}

	rec := f.journal.records[0]
	if rec.RunStatus != "failed" || rec.Delivered || rec.Error == "" {
		t.Errorf("unexpected journal record %+v", rec)
	}
}

func TestHandleSendsFallbackWhenEnabled(t *testing.T) {
	t.Parallel()

	f := newFixture(Options{SendFallback: true, Transport: "telegram"})
	f.assistant.err = assistant.ErrPollExhausted

	got := f.svc.Handle(context.Background(), inbox("m1", "77073200049", "hello"))
	if got.Response != FallbackReply {
		t.Fatalf("expected fallback reply, got %+v", got)
	}
	if f.sender.count() != 1 || f.sender.sent[0].Text != FallbackReply || f.sender.sent[0].Transport != "telegram" {
		t.Errorf("expected fallback delivery over telegram, got %+v", f.sender.sent)
	}
}

func TestHandleSendFailureStillReportsSent(t *testing.T) {
	t.Parallel()

	f := newFixture(Options{})
	f.sender.err = errors.New("send message: status 500")

	got := f.svc.Handle(context.Background(), inbox("m1", "77073200049", "hello"))
	if got.Status != domain.StatusSent || got.Response != "Hi there" {
		t.Fatalf("expected sent with reply, got %+v", got)
	}
	if rec := f.journal.records[0]; rec.Delivered || rec.Error == "" {
		t.Errorf("expected undelivered record with error, got %+v", rec)
	}
}

func TestHandleDefaultText(t *testing.T) {
	t.Parallel()

	var asked string
	f := newFixture(Options{})
	f.svc.assistant = askFunc(func(_ context.Context, text string) (assistant.Reply, error) {
		asked = text
		return assistant.Reply{Text: "ok", RunStatus: assistant.StatusCompleted}, nil
	})

	ev := inbox("m1", "77073200049", "")
	ev.Text = nil
	f.svc.Handle(context.Background(), ev)
	if asked != domain.DefaultText {
		t.Errorf("expected %q, got %q", domain.DefaultText, asked)
	}
}

type askFunc func(ctx context.Context, text string) (assistant.Reply, error)

func (fn askFunc) Ask(ctx context.Context, text string) (assistant.Reply, error) { return fn(ctx, text) }

func TestHandleDedupFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(Options{})
	f.svc.dedup = failingDedup{fresh: false}
	got := f.svc.Handle(context.Background(), inbox("m1", "77073200049", "hello"))
	if got.Status != domain.StatusError || got.Message != "Deduplication unavailable" {
		t.Fatalf("expected dedup error, got %+v", got)
	}
	if f.resolver.calls.Load() != 0 {
		t.Error("pipeline continued after dedup failure")
	}

	f = newFixture(Options{})
	f.svc.dedup = failingDedup{fresh: true}
	if got := f.svc.Handle(context.Background(), inbox("m2", "77073200049", "hello")); got.Status != domain.StatusSent {
		t.Fatalf("a recorded id with a failed trim should still be processed, got %+v", got)
	}
}

type scriptedRunner struct {
	statuses []string
	polls    int
}

func (r *scriptedRunner) CreateThread(context.Context) (string, error) { return "thread_1", nil }

func (r *scriptedRunner) AddUserMessage(context.Context, string, string) error { return nil }

func (r *scriptedRunner) StartRun(context.Context, string) (assistant.Run, error) {
	return assistant.Run{ID: "run_1", Status: assistant.StatusQueued}, nil
}

func (r *scriptedRunner) GetRun(context.Context, string, string) (assistant.Run, error) {
	status := r.statuses[min(r.polls, len(r.statuses)-1)]
	r.polls++
	return assistant.Run{ID: "run_1", Status: status}, nil
}

func (r *scriptedRunner) AssistantMessages(context.Context, string) ([]string, error) {
	return []string{"Hi there【1†source】"}, nil
}

func TestHandleWorkedExample(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		sends []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clients":
			_, _ = io.WriteString(w, `{"data":{"id":42},"status":"success"}`)
		case "/messages":
			mu.Lock()
			sends = append(sends, r.URL.Query().Get("client_id")+"|"+r.URL.Query().Get("text"))
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	pc := provider.New(srv.Client(), srv.URL, "token")
	resolver := identity.NewResolver(identity.NewAllowlist([]string{"77073200049"}), pc, "whatsapp", discard)
	runner := &scriptedRunner{statuses: []string{assistant.StatusInProgress, assistant.StatusCompleted}}
	asst := assistant.NewService(runner, &assistant.Poller{Interval: time.Millisecond, Multiplier: 1}, discard)
	svc := NewService(dedup.NewMemorySet(dedup.DefaultCapacity), resolver, asst, pc, nil, Options{}, discard)

	got := svc.Handle(context.Background(), inbox("m1", "77073200049", "Hello"))
	if got.Status != domain.StatusSent || got.Response != "Hi there" {
		t.Fatalf("expected sent \"Hi there\", got %+v", got)
	}
	if len(sends) != 1 || sends[0] != "42|Hi there" {
		t.Fatalf("expected one send to client 42, got %v", sends)
	}
}

func TestHandleFailedRunStopsPolling(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	runner := &scriptedRunner{statuses: []string{assistant.StatusInProgress, "expired", assistant.StatusCompleted}}
	asst := assistant.NewService(runner, &assistant.Poller{Interval: time.Millisecond, Multiplier: 1}, discard)
	sender := &fakeSender{}
	svc := NewService(dedup.NewMemorySet(10), &fakeResolver{id: "42"}, asst, sender, nil, Options{}, logger)

	got := svc.Handle(context.Background(), inbox("m1", "77073200049", "Hello"))
	if got.Response != FallbackReply {
		t.Fatalf("expected fallback, got %+v", got)
	}
	if runner.polls != 2 {
		t.Errorf("expected polling to stop at the terminal status, got %d polls", runner.polls)
	}
	if sender.count() != 0 {
		t.Error("fallback was delivered")
	}
	if out := logs.String(); !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "run_status=expired") {
		t.Errorf("expected an error log carrying the run status, got %q", out)
	}
}

func TestHandleLogsIgnoredEvent(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	svc := NewService(dedup.NewMemorySet(10), nil, nil, nil, nil, Options{}, slog.New(slog.NewTextHandler(&logs, nil)))

	ev := inbox("m7", "77073200049", "hello")
	ev.HookType = domain.HookOutbox
	if got := svc.Handle(context.Background(), ev); got.Status != domain.StatusIgnored {
		t.Fatalf("expected ignored, got %+v", got)
	}
	out := logs.String()
	if !strings.Contains(out, "Ignored non-inbox message") || !strings.Contains(out, "message_id=m7") {
		t.Errorf("expected ignored event to be logged, got %q", out)
	}
}
