package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hivemindhq/hivemind/internal/log"
)

func TestEventWriterFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	events, err := NewEventWriter(rec, log.NewNop())
	if err != nil {
		t.Fatalf("NewEventWriter: %v", err)
	}

	events.Send(EventTextDelta, map[string]string{"text": "hi"})
	events.Send(EventDone, struct{}{})

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("cache control = %q", got)
	}

	want := "event: text_delta\ndata: {\"text\":\"hi\"}\n\nevent: done\ndata: {}\n\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
	if !rec.Flushed {
		t.Error("response was never flushed")
	}
}

// plainWriter hides ResponseRecorder's Flush method.
type plainWriter struct{ http.ResponseWriter }

func TestNewEventWriterRequiresFlusher(t *testing.T) {
	if _, err := NewEventWriter(plainWriter{httptest.NewRecorder()}, log.NewNop()); err == nil {
		t.Fatal("expected error for a writer without flush support")
	}
}
