package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/chatrelay/internal/domain"
)

type fakeLister struct {
	limit   int
	records []*domain.RelayRecord
	err     error
}

func (f *fakeLister) ListRecent(_ context.Context, limit int) ([]*domain.RelayRecord, error) {
	f.limit = limit
	return f.records, f.err
}

func serveRelays(t *testing.T, lister RelayLister, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewJournalHandler(lister).RegisterRoutes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestListRelays(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{records: []*domain.RelayRecord{
		{ID: "r1", MessageID: "m1", Status: domain.StatusSent, ClientID: "42"},
	}}
	w := serveRelays(t, lister, "/api/relays")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if lister.limit != 50 {
		t.Errorf("expected default limit 50, got %d", lister.limit)
	}
	var got struct {
		Relays []domain.RelayRecord `json:"relays"`
		Count  int                  `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Count != 1 || got.Relays[0].ClientID != "42" {
		t.Errorf("unexpected body %+v", got)
	}
}

func TestListRelaysLimit(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{}
	serveRelays(t, lister, "/api/relays?limit=9000")
	if lister.limit != 500 {
		t.Errorf("expected limit capped at 500, got %d", lister.limit)
	}

	for _, bad := range []string{"0", "-1", "ten"} {
		if w := serveRelays(t, &fakeLister{}, "/api/relays?limit="+bad); w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", bad, w.Code)
		}
	}
}

func TestListRelaysFailure(t *testing.T) {
	t.Parallel()

	w := serveRelays(t, &fakeLister{err: errors.New("database is closed")}, "/api/relays")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
