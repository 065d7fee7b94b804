package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/log"
)

// mockWebSearcher is a scripted WebSearcher.
type mockWebSearcher struct {
	results []WebResult
	err     error
}

func (m *mockWebSearcher) Search(context.Context, string) ([]WebResult, error) {
	return m.results, m.err
}

func TestWebSearchFormatsResults(t *testing.T) {
	wt, err := NewWebSearch(&mockWebSearcher{results: []WebResult{
		{Title: "Go 1.25 released", URL: "https://go.dev/blog/go1.25", Content: "The latest Go release."},
		{Title: "Release notes", URL: "https://go.dev/doc/go1.25", Content: "Details."},
	}}, log.NewNop())
	if err != nil {
		t.Fatalf("NewWebSearch() error = %v", err)
	}

	out, err := wt.Search(toolCtx(context.Background()), WebSearchInput{Query: "go 1.25"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, want := range []string{"[1] Go 1.25 released", "https://go.dev/blog/go1.25", "[2] Release notes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWebSearchCapsResults(t *testing.T) {
	var results []WebResult
	for i := range 9 {
		results = append(results, WebResult{Title: fmt.Sprintf("r%d", i), URL: "https://example.com"})
	}
	wt, _ := NewWebSearch(&mockWebSearcher{results: results}, log.NewNop())

	collector := NewSourceCollector()
	ctx := ContextWithCollector(context.Background(), collector)

	out, err := wt.Search(toolCtx(ctx), WebSearchInput{Query: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if strings.Contains(out, "[6]") {
		t.Error("more than 5 results formatted")
	}
	if got := len(collector.Sources()); got != MaxWebResults {
		t.Errorf("collected %d sources, want %d", got, MaxWebResults)
	}
}

func TestWebSearchFailureBecomesText(t *testing.T) {
	wt, _ := NewWebSearch(&mockWebSearcher{err: errors.New("engine down")}, log.NewNop())

	out, err := wt.Search(toolCtx(context.Background()), WebSearchInput{Query: "q"})
	if err != nil {
		t.Fatalf("tool failure escaped as error: %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "sorry") {
		t.Errorf("failure output = %q, want apologetic text", out)
	}
}

func TestWebSearchSourceKind(t *testing.T) {
	wt, _ := NewWebSearch(&mockWebSearcher{results: []WebResult{
		{Title: "Doc", URL: "https://example.com/doc", Content: "text"},
	}}, log.NewNop())

	collector := NewSourceCollector()
	ctx := ContextWithCollector(context.Background(), collector)
	if _, err := wt.Search(toolCtx(ctx), WebSearchInput{Query: "q"}); err != nil {
		t.Fatal(err)
	}

	sources := collector.Sources()
	if len(sources) != 1 || sources[0].Kind != chat.SourceKindWeb {
		t.Errorf("sources = %+v", sources)
	}
}

func TestSearXNGClientParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("format = %q", r.URL.Query().Get("format"))
		}
		w.Write([]byte(`{"results":[
			{"title":"A","url":"https://a.example","content":"alpha"},
			{"title":"B","url":"https://b.example","content":"beta"}
		]}`))
	}))
	defer srv.Close()

	client, err := NewSearXNGClient(srv.URL, log.NewNop())
	if err != nil {
		t.Fatalf("NewSearXNGClient() error = %v", err)
	}

	results, err := client.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 || results[0].Title != "A" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearXNGClientEnrichesEmptyContent(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Doc</title></head><body><article><p>Readable body text for the excerpt.</p></article></body></html>`))
	}))
	defer page.Close()

	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results":[{"title":"Doc","url":%q,"content":""}]}`, page.URL)
	}))
	defer engine.Close()

	client, _ := NewSearXNGClient(engine.URL, log.NewNop())
	results, err := client.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if !strings.Contains(results[0].Content, "Readable body text") {
		t.Errorf("content not enriched: %q", results[0].Content)
	}
}

func TestSearXNGClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, _ := NewSearXNGClient(srv.URL, log.NewNop())
	if _, err := client.Search(context.Background(), "query"); err == nil {
		t.Fatal("Search() should fail on non-200")
	}
}
