package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/log"
)

// Stream event names. done and error are terminal; sources precedes
// done and only appears when the turn collected citations. A client
// that loses the stream refetches the chat instead of resuming; the
// protocol is deliberately not resumable.
const (
	EventToolStart  = "tool_start"
	EventToolEnd    = "tool_end"
	EventGenerating = "generating"
	EventTextDelta  = "text_delta"
	EventSources    = "sources"
	EventDone       = "done"
	EventError      = "error"
)

// EventWriter frames server-sent events onto an HTTP response,
// flushing after every event. Safe for concurrent use.
type EventWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	logger  log.Logger
}

// NewEventWriter prepares the response for SSE and returns a writer.
// Fails when the underlying ResponseWriter cannot stream.
func NewEventWriter(w http.ResponseWriter, logger log.Logger) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &EventWriter{w: w, flusher: flusher, logger: logger}, nil
}

// Send writes one `event: <name>\ndata: <json>\n\n` frame. Write
// failures after a client disconnect are logged and swallowed; the
// server-side turn finishes regardless.
func (e *EventWriter) Send(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		e.logger.Error("encoding stream event", "event", event, "error", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		e.logger.Debug("stream write failed", "event", event, "error", err)
		return
	}
	e.flusher.Flush()
}

// turnSink forwards agent turn events onto the stream.
type turnSink struct {
	events *EventWriter
}

func (s *turnSink) OnToolStart(name, query string) {
	s.events.Send(EventToolStart, map[string]string{"tool": name, "query": query})
}

func (s *turnSink) OnToolEnd(name string) {
	s.events.Send(EventToolEnd, map[string]string{"tool": name})
}

func (s *turnSink) OnGenerating() {
	s.events.Send(EventGenerating, struct{}{})
}

func (s *turnSink) OnTextDelta(text string) {
	s.events.Send(EventTextDelta, map[string]string{"text": text})
}

func (s *turnSink) OnSources(sources []chat.Source) {
	s.events.Send(EventSources, map[string]any{"sources": sources})
}
