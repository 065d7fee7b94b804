package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

// recordingEmitter captures lifecycle events in order.
type recordingEmitter struct {
	events []string
}

func (r *recordingEmitter) OnToolStart(name, query string) {
	r.events = append(r.events, "start:"+name+":"+query)
}

func (r *recordingEmitter) OnToolEnd(name string) {
	r.events = append(r.events, "end:"+name)
}

func TestWithEventsEmitsLifecycle(t *testing.T) {
	emitter := &recordingEmitter{}
	ctx := ContextWithEmitter(context.Background(), emitter)

	wrapped := withEvents("search_web",
		func(in WebSearchInput) string { return in.Query },
		func(*ai.ToolContext, WebSearchInput) (string, error) { return "ok", nil })

	out, err := wrapped(&ai.ToolContext{Context: ctx}, WebSearchInput{Query: "quarterly goals"})
	if err != nil || out != "ok" {
		t.Fatalf("wrapped() = %q, %v", out, err)
	}

	want := []string{"start:search_web:quarterly goals", "end:search_web"}
	if len(emitter.events) != len(want) {
		t.Fatalf("events = %v, want %v", emitter.events, want)
	}
	for i := range want {
		if emitter.events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, emitter.events[i], want[i])
		}
	}
}

func TestWithEventsEmitsEndOnError(t *testing.T) {
	emitter := &recordingEmitter{}
	ctx := ContextWithEmitter(context.Background(), emitter)

	wrapped := withEvents("search_web",
		func(in WebSearchInput) string { return in.Query },
		func(*ai.ToolContext, WebSearchInput) (string, error) { return "", errors.New("boom") })

	if _, err := wrapped(&ai.ToolContext{Context: ctx}, WebSearchInput{Query: "q"}); err == nil {
		t.Fatal("wrapped() should propagate handler error")
	}
	if len(emitter.events) != 2 || emitter.events[1] != "end:search_web" {
		t.Errorf("events = %v, want end event even on failure", emitter.events)
	}
}

func TestWithEventsNoEmitterDegrades(t *testing.T) {
	wrapped := withEvents("search_web",
		func(in WebSearchInput) string { return in.Query },
		func(*ai.ToolContext, WebSearchInput) (string, error) { return "ok", nil })

	out, err := wrapped(&ai.ToolContext{Context: context.Background()}, WebSearchInput{Query: "q"})
	if err != nil || out != "ok" {
		t.Fatalf("wrapped() without emitter = %q, %v", out, err)
	}
}

func TestCollectorFromContextNil(t *testing.T) {
	if c := CollectorFromContext(context.Background()); c != nil {
		t.Error("empty context should yield nil collector")
	}
	if e := EmitterFromContext(context.Background()); e != nil {
		t.Error("empty context should yield nil emitter")
	}
	if org := OrgIDFromContext(context.Background()); org != "" {
		t.Errorf("empty context org = %q", org)
	}
}
