package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteSSEEvent(t *testing.T) {
	rr := httptest.NewRecorder()
	SetupSSEHeaders(rr)

	if err := WriteSSEEvent(rr, rr, "message", []byte(`{"type":"message"}`)); err != nil {
		t.Fatalf("WriteSSEEvent err: %v", err)
	}
	if err := WriteSSEComment(rr, rr, "ping"); err != nil {
		t.Fatalf("WriteSSEComment err: %v", err)
	}

	want := "event: message\ndata: {\"type\":\"message\"}\n\n: ping\n\n"
	if got := rr.Body.String(); got != want {
		t.Fatalf("unexpected body %q", got)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !rr.Flushed {
		t.Fatal("expected flush")
	}
}

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, http.StatusNotFound, "no match yet")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if got := rr.Body.String(); got != "{\"error\":\"no match yet\"}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}
