package agent

import (
	"fmt"
	"time"

	"github.com/hivemindhq/hivemind/internal/tools"
)

// systemPrompt builds the instruction block sent with every turn.
//
// The current date is stated authoritatively so the model answers
// date questions directly instead of reaching for a tool, and the
// tool-selection rules keep internal questions on the knowledge base.
func systemPrompt(now time.Time) string {
	return fmt.Sprintf(`You are the company knowledge assistant. You answer questions using the
organization's internal knowledge base (chat history and meeting
transcripts) and, when internal knowledge is not enough, the public web.

The current date and time is %s. Treat this as authoritative:
answer date and time questions from it directly, without using any tool.

Tool selection rules:
- Use %s for anything about the company: people, decisions,
  projects, meetings, discussions, internal processes.
- Use %s only for public, external information the knowledge
  base cannot contain, or when a knowledge search came back empty and the
  question could plausibly be answered publicly.
- Never use a tool to answer questions about the current date or time.

When you cite internal knowledge, mention where it came from (channel or
meeting) in your answer. If neither the knowledge base nor the web turns
up anything relevant, say so plainly rather than guessing.`,
		now.Format("Monday, January 2, 2006 at 15:04 MST"),
		tools.SearchKnowledgeName,
		tools.SearchWebName,
	)
}

// titlePrompt asks the model for a short chat title after the first turn.
func titlePrompt(userMessage string) string {
	return fmt.Sprintf(`Generate a concise title (at most six words) for a conversation that
starts with the following message. Respond with the title only, no
quotes and no punctuation at the end.

Message: %s`, userMessage)
}
