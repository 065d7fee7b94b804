package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/knowledge"
	"github.com/hivemindhq/hivemind/internal/log"
)

// mockSearcher is a scripted KnowledgeSearcher.
type mockSearcher struct {
	hits      []knowledge.Hit
	err       error
	lastOrgID string
	lastQuery string
	lastOpts  int
}

func (m *mockSearcher) Search(_ context.Context, orgID, query string, opts ...knowledge.SearchOption) ([]knowledge.Hit, error) {
	m.lastOrgID = orgID
	m.lastQuery = query
	m.lastOpts = len(opts)
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

func slackHit(channel, author, content string) knowledge.Hit {
	return knowledge.Hit{
		Record: knowledge.Record{
			ID:         "slack:C1:1.0",
			OrgID:      "org1",
			SourceType: knowledge.SourceSlack,
			Content:    content,
			Ts:         1712345678,
			Metadata: map[string]string{
				knowledge.MetaChannelName: channel,
				knowledge.MetaAuthorName:  author,
			},
		},
		Score: 0.9,
	}
}

func meetingHit(title, speaker, content string) knowledge.Hit {
	return knowledge.Hit{
		Record: knowledge.Record{
			ID:         "meeting:m1:0:0",
			OrgID:      "org1",
			SourceType: knowledge.SourceMeeting,
			Content:    content,
			Metadata: map[string]string{
				knowledge.MetaMeetingTitle: title,
				knowledge.MetaSpeaker:      speaker,
				knowledge.MetaStartOffset:  "0",
				knowledge.MetaEndOffset:    "20",
			},
		},
		Score: 0.8,
	}
}

func toolCtx(ctx context.Context) *ai.ToolContext {
	return &ai.ToolContext{Context: ctx}
}

func TestKnowledgeSearchFormatsHits(t *testing.T) {
	searcher := &mockSearcher{hits: []knowledge.Hit{
		slackHit("general", "Alice", "we shipped the migration"),
		meetingHit("Q3 Planning", "Bob", "headcount stays flat"),
	}}
	kt, err := NewKnowledge(searcher, log.NewNop())
	if err != nil {
		t.Fatalf("NewKnowledge() error = %v", err)
	}

	ctx := ContextWithOrgID(context.Background(), "org1")
	out, err := kt.Search(toolCtx(ctx), KnowledgeSearchInput{Query: "migration status"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	for _, want := range []string{"[1]", "#general", "Alice", "[2]", "Meeting: Q3 Planning", "Speaker: Bob", "0s-20s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if searcher.lastOrgID != "org1" {
		t.Errorf("org scope = %q", searcher.lastOrgID)
	}
}

func TestKnowledgeSearchCollectsSources(t *testing.T) {
	searcher := &mockSearcher{hits: []knowledge.Hit{
		slackHit("general", "Alice", "we shipped the migration"),
	}}
	kt, _ := NewKnowledge(searcher, log.NewNop())

	collector := NewSourceCollector()
	ctx := ContextWithCollector(ContextWithOrgID(context.Background(), "org1"), collector)

	if _, err := kt.Search(toolCtx(ctx), KnowledgeSearchInput{Query: "migration"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	sources := collector.Sources()
	if len(sources) != 1 {
		t.Fatalf("collected %d sources, want 1", len(sources))
	}
	if sources[0].Kind != chat.SourceKindSlack || sources[0].ChannelName != "general" {
		t.Errorf("source = %+v", sources[0])
	}
}

func TestKnowledgeSearchZeroHits(t *testing.T) {
	kt, _ := NewKnowledge(&mockSearcher{}, log.NewNop())

	ctx := ContextWithOrgID(context.Background(), "org1")
	out, err := kt.Search(toolCtx(ctx), KnowledgeSearchInput{Query: "nonexistent"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if out != NoKnowledgeFound {
		t.Errorf("zero-hit output = %q", out)
	}
}

func TestKnowledgeSearchFailureBecomesText(t *testing.T) {
	kt, _ := NewKnowledge(&mockSearcher{err: errors.New("backend down")}, log.NewNop())

	ctx := ContextWithOrgID(context.Background(), "org1")
	out, err := kt.Search(toolCtx(ctx), KnowledgeSearchInput{Query: "anything"})
	if err != nil {
		t.Fatalf("tool failure escaped as error: %v", err)
	}
	if out == "" || out == NoKnowledgeFound {
		t.Errorf("failure output = %q, want apologetic text", out)
	}
}

func TestKnowledgeSearchWithoutOrgScope(t *testing.T) {
	searcher := &mockSearcher{}
	kt, _ := NewKnowledge(searcher, log.NewNop())

	out, err := kt.Search(toolCtx(context.Background()), KnowledgeSearchInput{Query: "anything"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if out == "" {
		t.Error("missing org should still produce text")
	}
	if searcher.lastQuery != "" {
		t.Error("search ran without org scope")
	}
}

func TestParseDateRange(t *testing.T) {
	start, end, ok := parseDateRange("2026-08-01", "2026-08-15")
	if !ok {
		t.Fatal("valid range not parsed")
	}
	if start.Format("2006-01-02") != "2026-08-01" {
		t.Errorf("start = %v", start)
	}
	// Exclusive day-after end.
	if end.Format("2006-01-02") != "2026-08-16" {
		t.Errorf("end = %v, want day after 2026-08-15", end)
	}

	if _, _, ok := parseDateRange("yesterday", ""); ok {
		t.Error("malformed date should be rejected")
	}
	if _, _, ok := parseDateRange("", ""); ok {
		t.Error("empty range should report not ok")
	}
}

func TestClampTopK(t *testing.T) {
	tests := []struct {
		name string
		topK int
		want int
	}{
		{name: "zero uses default", topK: 0, want: DefaultKnowledgeTopK},
		{name: "negative uses default", topK: -3, want: DefaultKnowledgeTopK},
		{name: "in range unchanged", topK: 7, want: 7},
		{name: "clamped to max", topK: 50, want: MaxKnowledgeTopK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampTopK(tt.topK); got != tt.want {
				t.Errorf("clampTopK(%d) = %d, want %d", tt.topK, got, tt.want)
			}
		})
	}
}

func TestExcerptTruncatesAtWordBoundary(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := excerpt(long)
	if len(got) > maxExcerptLen+len("…") {
		t.Errorf("excerpt too long: %d", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("truncated excerpt missing ellipsis")
	}
	if got2 := excerpt("short"); got2 != "short" {
		t.Errorf("short input modified: %q", got2)
	}
}
