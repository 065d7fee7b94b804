package testutil

import "strings"

// SSEEvent is one parsed server-sent event.
type SSEEvent struct {
	Event string
	Data  string
}

// ParseSSEEvents splits a raw text/event-stream body into its events.
// Comment lines and unknown fields are ignored.
func ParseSSEEvents(raw string) []SSEEvent {
	var events []SSEEvent
	for _, block := range strings.Split(raw, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var ev SSEEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.Event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.Data = strings.TrimPrefix(line, "data: ")
			}
		}
		if ev.Event != "" || ev.Data != "" {
			events = append(events, ev)
		}
	}
	return events
}
