package ingest

import "strings"

// DefaultChunkMaxChars bounds a transcript chunk when the caller does
// not configure a limit.
const DefaultChunkMaxChars = 3000

// Turn is one contiguous utterance of a transcript: speaker, start and
// end offsets in seconds, and the spoken text.
type Turn struct {
	Speaker string
	Start   float64
	End     float64
	Text    string
}

// Chunk is a bounded span of consecutive same-speaker turns. Start is
// the first turn's start, End the last turn's end.
type Chunk struct {
	Index   int
	Speaker string
	Start   float64
	End     float64
	Text    string
}

// ChunkTranscript splits ordered turns into non-overlapping chunks.
// Consecutive turns of the same speaker merge, joined by a single
// space, until adding the next turn would exceed maxChars; a speaker
// change always starts a new chunk. Flushes land on turn boundaries,
// which are whitespace joins, so no chunk ever ends mid-word. A single
// turn longer than maxChars is emitted whole as its own oversized chunk
// rather than dropped. The function is deterministic: identical input
// yields identical chunk boundaries, which the record identity scheme
// depends on.
func ChunkTranscript(turns []Turn, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultChunkMaxChars
	}

	var (
		chunks []Chunk
		cur    *Chunk
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Index = len(chunks)
		chunks = append(chunks, *cur)
		cur = nil
	}

	for _, turn := range turns {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}

		if cur != nil && (turn.Speaker != cur.Speaker || len(cur.Text)+1+len(text) > maxChars) {
			flush()
		}

		if cur == nil {
			cur = &Chunk{
				Speaker: turn.Speaker,
				Start:   turn.Start,
				End:     turn.End,
				Text:    text,
			}
			continue
		}

		cur.Text += " " + text
		cur.End = turn.End
	}
	flush()

	return chunks
}
