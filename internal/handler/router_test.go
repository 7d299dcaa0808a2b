package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/broadcast"
)

type noMatch struct{}

func (noMatch) Snapshot() (chat.Snapshot, bool) { return chat.Snapshot{}, false }

type noChat struct{}

func (noChat) Recent() []chat.ChatMessage { return []chat.ChatMessage{} }

func setupRouter() http.Handler {
	store := persona.NewMemoryStore(persona.Seed())
	return NewRouter(Deps{
		Hub:      broadcast.NewHub(store.Names()),
		Personas: store,
		Session:  noMatch{},
		Chat:     noChat{},
	})
}

func TestRouterRoutes(t *testing.T) {
	r := setupRouter()

	cases := []struct {
		path string
		code int
	}{
		{"/healthz", http.StatusOK},
		{"/api/personas", http.StatusOK},
		{"/api/stats", http.StatusOK},
		{"/api/session", http.StatusNotFound},
		{"/api/chat", http.StatusOK},
		{"/api/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.code, resp.Code)
		}
	}
}

func TestRouterHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	setupRouter().ServeHTTP(resp, req)

	want := `{"observers":0,"status":"ok"}` + "\n"
	if got := resp.Body.String(); got != want {
		t.Fatalf("unexpected body %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header without Origin, got %q", got)
	}
}
