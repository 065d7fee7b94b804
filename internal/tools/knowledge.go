package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/knowledge"
	"github.com/hivemindhq/hivemind/internal/log"
)

// SearchKnowledgeName is the Genkit tool name for the internal
// knowledge base search.
const SearchKnowledgeName = "search_knowledge"

// Default and maximum hit counts for knowledge searches.
const (
	DefaultKnowledgeTopK = 5
	MaxKnowledgeTopK     = 10
)

// NoKnowledgeFound is the tool result when a search matches nothing.
// An explicit sentence, never an empty string, so the model can tell
// the user instead of hallucinating.
const NoKnowledgeFound = "No relevant information was found in the company knowledge base for this query."

// KnowledgeSearchInput is the model-facing input schema.
type KnowledgeSearchInput struct {
	Query     string `json:"query" jsonschema_description:"The search query string"`
	Channel   string `json:"channel,omitempty" jsonschema_description:"Optional Slack channel name to restrict results to"`
	StartDate string `json:"start_date,omitempty" jsonschema_description:"Optional inclusive start date, YYYY-MM-DD"`
	EndDate   string `json:"end_date,omitempty" jsonschema_description:"Optional inclusive end date, YYYY-MM-DD"`
	TopK      int    `json:"topK,omitempty" jsonschema_description:"Maximum results to return (1-10)"`
}

// KnowledgeSearcher is the retrieval surface the tool needs; the
// production implementation is *knowledge.Store.
type KnowledgeSearcher interface {
	Search(ctx context.Context, orgID, query string, opts ...knowledge.SearchOption) ([]knowledge.Hit, error)
}

// Knowledge holds the knowledge tool's dependencies.
type Knowledge struct {
	searcher KnowledgeSearcher
	logger   log.Logger
}

// NewKnowledge creates the knowledge tool handler.
func NewKnowledge(searcher KnowledgeSearcher, logger log.Logger) (*Knowledge, error) {
	if searcher == nil {
		return nil, fmt.Errorf("knowledge searcher is required")
	}
	return &Knowledge{searcher: searcher, logger: logger}, nil
}

// Search runs the internal knowledge base search. Failures come back as
// text, never as an error.
func (k *Knowledge) Search(ctx *ai.ToolContext, input KnowledgeSearchInput) (string, error) {
	orgID := OrgIDFromContext(ctx.Context)
	if orgID == "" {
		k.logger.Warn("knowledge search without organization scope")
		return "The knowledge base is not available right now.", nil
	}

	opts := []knowledge.SearchOption{
		knowledge.WithTopK(clampTopK(input.TopK)),
	}
	if input.Channel != "" {
		opts = append(opts, knowledge.WithChannel(strings.TrimPrefix(input.Channel, "#")))
	}
	if start, end, ok := parseDateRange(input.StartDate, input.EndDate); ok {
		opts = append(opts, knowledge.WithTimeRange(start, end))
	}

	hits, err := k.searcher.Search(ctx.Context, orgID, input.Query, opts...)
	if err != nil {
		k.logger.Warn("knowledge search failed", "query", input.Query, "error", err)
		return "Sorry, the knowledge base search failed. Try answering from what you already know.", nil
	}
	if len(hits) == 0 {
		return NoKnowledgeFound, nil
	}

	if collector := CollectorFromContext(ctx.Context); collector != nil {
		for _, hit := range hits {
			collector.Add(sourceFromHit(hit))
		}
	}

	return formatHits(hits), nil
}

func clampTopK(topK int) int {
	if topK <= 0 {
		return DefaultKnowledgeTopK
	}
	if topK > MaxKnowledgeTopK {
		return MaxKnowledgeTopK
	}
	return topK
}

// parseDateRange converts YYYY-MM-DD strings into an inclusive-start,
// exclusive-day-after-end time range. Either side may be empty;
// malformed dates are ignored wholesale.
func parseDateRange(startDate, endDate string) (time.Time, time.Time, bool) {
	var start, end time.Time
	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		start = t
	}
	if endDate != "" {
		t, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		end = t.AddDate(0, 0, 1)
	}
	return start, end, startDate != "" || endDate != ""
}

// formatHits renders hits as numbered, kind-specific blocks the model
// can quote from.
func formatHits(hits []knowledge.Hit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results in the company knowledge base:\n", len(hits))

	for i, hit := range hits {
		meta := hit.Record.Metadata
		fmt.Fprintf(&b, "\n[%d] ", i+1)

		switch hit.Record.SourceType {
		case knowledge.SourceMeeting:
			fmt.Fprintf(&b, "Meeting: %s", meta[knowledge.MetaMeetingTitle])
			if speaker := meta[knowledge.MetaSpeaker]; speaker != "" {
				fmt.Fprintf(&b, "\nSpeaker: %s", speaker)
			}
			if start, end := meta[knowledge.MetaStartOffset], meta[knowledge.MetaEndOffset]; start != "" && end != "" {
				fmt.Fprintf(&b, "\nTime: %ss-%ss", start, end)
			}
		default:
			fmt.Fprintf(&b, "Channel: #%s", meta[knowledge.MetaChannelName])
			if author := meta[knowledge.MetaAuthorName]; author != "" {
				fmt.Fprintf(&b, "\nAuthor: %s", author)
			}
			if hit.Record.Ts > 0 {
				fmt.Fprintf(&b, "\nDate: %s", time.Unix(int64(hit.Record.Ts), 0).UTC().Format("2006-01-02"))
			}
		}

		fmt.Fprintf(&b, "\nContent: %s\n", hit.Record.Content)
	}

	return b.String()
}

// sourceFromHit reconstructs a citation from a record's metadata.
func sourceFromHit(hit knowledge.Hit) chat.Source {
	meta := hit.Record.Metadata

	if hit.Record.SourceType == knowledge.SourceMeeting {
		start, _ := strconv.ParseFloat(meta[knowledge.MetaStartOffset], 64)
		end, _ := strconv.ParseFloat(meta[knowledge.MetaEndOffset], 64)
		return chat.Source{
			Kind:         chat.SourceKindMeeting,
			MeetingTitle: meta[knowledge.MetaMeetingTitle],
			Speaker:      meta[knowledge.MetaSpeaker],
			StartOffset:  start,
			EndOffset:    end,
			URL:          meta[knowledge.MetaMeetingURL],
			Excerpt:      excerpt(hit.Record.Content),
			Timestamp:    meta[knowledge.MetaMeetingDate],
		}
	}

	var ts string
	if hit.Record.Ts > 0 {
		ts = time.Unix(int64(hit.Record.Ts), 0).UTC().Format(time.RFC3339)
	}
	return chat.Source{
		Kind:        chat.SourceKindSlack,
		ChannelName: meta[knowledge.MetaChannelName],
		Author:      meta[knowledge.MetaAuthorName],
		Timestamp:   ts,
		IsThread:    meta[knowledge.MetaIsThread] == "true",
		URL:         meta[knowledge.MetaPermalink],
		Excerpt:     excerpt(hit.Record.Content),
	}
}

const maxExcerptLen = 300

func excerpt(s string) string {
	if len(s) <= maxExcerptLen {
		return s
	}
	cut := s[:maxExcerptLen]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
