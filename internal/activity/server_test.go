package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestMux(store *Store) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterRoutes(mux, RoutesOptions{AuthToken: "token", Reader: store, Identity: "U0BOT"})
	return mux
}

func TestHealthIsPublic(t *testing.T) {
	t.Parallel()

	store := NewStore(10)
	store.SetLastCycle(CycleInfo{CycleID: "c1", Seen: 4})
	rec := httptest.NewRecorder()
	newTestMux(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["ok"] != true || payload["bot_user_id"] != "U0BOT" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	cycle, ok := payload["last_cycle"].(map[string]any)
	if !ok || cycle["cycle_id"] != "c1" {
		t.Fatalf("unexpected last_cycle: %v", payload["last_cycle"])
	}

	rec = httptest.NewRecorder()
	newTestMux(store).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health status = %d", rec.Code)
	}
}

func TestActivityRequiresAuth(t *testing.T) {
	t.Parallel()

	mux := newTestMux(NewStore(10))
	for _, path := range []string{"/activity", "/activity/act-1"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer wrong")
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", path, rec.Code)
		}
	}
}

func TestActivityListAndGet(t *testing.T) {
	t.Parallel()

	store := NewStore(10)
	now := time.Now().UTC()
	store.Upsert(Record{ID: "act-1", Outcome: OutcomePosted, CreatedAt: now.Add(-time.Minute)})
	store.Upsert(Record{ID: "act-2", Outcome: OutcomeNoEmail, CreatedAt: now})
	mux := newTestMux(store)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer token")
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/activity?outcome=posted")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var list struct {
		Items []Record `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != "act-1" {
		t.Fatalf("items = %#v", list.Items)
	}

	if rec := get("/activity?outcome=bogus"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad outcome status = %d", rec.Code)
	}
	if rec := get("/activity?limit=0"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
	if rec := get("/activity/act-2"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"no_email"`) {
		t.Fatalf("get status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec := get("/activity/none"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing record status = %d", rec.Code)
	}
}

func TestStartServer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := StartServer(ctx, nil, ServerOptions{}); err == nil {
		t.Fatalf("expected error for empty listen address")
	}

	srv, err := StartServer(ctx, nil, ServerOptions{Listen: "127.0.0.1:0", Routes: RoutesOptions{Reader: NewStore(1)}})
	if err != nil {
		t.Fatalf("StartServer() error = %v", err)
	}
	if srv == nil {
		t.Fatalf("StartServer() returned nil server")
	}
}
