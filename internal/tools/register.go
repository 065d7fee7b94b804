package tools

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Register defines both agent tools with Genkit and returns their
// references for the generation calls. Tool handlers are wrapped so
// they emit lifecycle events to the turn's stream.
func Register(g *genkit.Genkit, kt *Knowledge, wt *WebSearch) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if kt == nil || wt == nil {
		return nil, fmt.Errorf("both tool handlers are required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, SearchKnowledgeName,
			"Search the company's internal knowledge base built from Slack "+
				"channels and meeting transcripts. Use this for questions about "+
				"internal projects, decisions, people, and discussions. "+
				"Supports an optional channel name filter and an optional "+
				"YYYY-MM-DD date range.",
			withEvents(SearchKnowledgeName,
				func(in KnowledgeSearchInput) string { return in.Query },
				kt.Search)),
		genkit.DefineTool(g, SearchWebName,
			"Search the public web. Use this for general knowledge, current "+
				"events, and anything outside the company. Never use it to "+
				"answer date or time questions.",
			withEvents(SearchWebName,
				func(in WebSearchInput) string { return in.Query },
				wt.Search)),
	}, nil
}
