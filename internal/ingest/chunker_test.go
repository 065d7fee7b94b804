package ingest

import (
	"reflect"
	"strings"
	"testing"
)

func TestChunkTranscriptMergesSameSpeaker(t *testing.T) {
	turns := []Turn{
		{Speaker: "Alice", Start: 0, End: 10, Text: "Hello"},
		{Speaker: "Alice", Start: 10, End: 20, Text: "world"},
	}

	chunks := ChunkTranscript(turns, 3000)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c := chunks[0]
	if c.Text != "Hello world" {
		t.Errorf("text = %q, want %q", c.Text, "Hello world")
	}
	if c.Start != 0 || c.End != 20 {
		t.Errorf("span = [%v, %v], want [0, 20]", c.Start, c.End)
	}
	if c.Speaker != "Alice" {
		t.Errorf("speaker = %q", c.Speaker)
	}
	if c.Index != 0 {
		t.Errorf("index = %d", c.Index)
	}
}

func TestChunkTranscriptSplitsOnSpeakerChange(t *testing.T) {
	turns := []Turn{
		{Speaker: "Alice", Start: 0, End: 10, Text: "First point"},
		{Speaker: "Bob", Start: 10, End: 20, Text: "Counterpoint"},
		{Speaker: "Alice", Start: 20, End: 30, Text: "Rebuttal"},
	}

	chunks := ChunkTranscript(turns, 3000)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, want := range []string{"Alice", "Bob", "Alice"} {
		if chunks[i].Speaker != want {
			t.Errorf("chunk %d speaker = %q, want %q", i, chunks[i].Speaker, want)
		}
		if chunks[i].Index != i {
			t.Errorf("chunk %d index = %d", i, chunks[i].Index)
		}
	}
}

func TestChunkTranscriptSplitsOnSizeLimit(t *testing.T) {
	turns := []Turn{
		{Speaker: "Alice", Start: 0, End: 10, Text: strings.Repeat("a", 40)},
		{Speaker: "Alice", Start: 10, End: 20, Text: strings.Repeat("b", 40)},
	}

	chunks := ChunkTranscript(turns, 50)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].End != 10 || chunks[1].Start != 10 {
		t.Errorf("boundary offsets wrong: %+v", chunks)
	}
	// Flush points are turn boundaries: no chunk ends mid-word.
	for i, c := range chunks {
		if strings.HasSuffix(c.Text, " ") {
			t.Errorf("chunk %d has trailing whitespace", i)
		}
	}
}

func TestChunkTranscriptOversizedTurnEmittedWhole(t *testing.T) {
	big := strings.Repeat("x", 5000)
	turns := []Turn{
		{Speaker: "Alice", Start: 0, End: 60, Text: big},
	}

	chunks := ChunkTranscript(turns, 3000)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 oversized chunk", len(chunks))
	}
	if chunks[0].Text != big {
		t.Error("oversized turn content was dropped or truncated")
	}
}

func TestChunkTranscriptSkipsEmptyTurns(t *testing.T) {
	turns := []Turn{
		{Speaker: "Alice", Start: 0, End: 5, Text: "  "},
		{Speaker: "Alice", Start: 5, End: 10, Text: "real content"},
	}

	chunks := ChunkTranscript(turns, 3000)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "real content" {
		t.Errorf("text = %q", chunks[0].Text)
	}
	if chunks[0].Start != 5 {
		t.Errorf("start = %v, want 5 (first non-empty turn)", chunks[0].Start)
	}
}

func TestChunkTranscriptDeterministic(t *testing.T) {
	turns := []Turn{
		{Speaker: "Alice", Start: 0, End: 10, Text: strings.Repeat("alpha ", 20)},
		{Speaker: "Alice", Start: 10, End: 25, Text: strings.Repeat("beta ", 20)},
		{Speaker: "Bob", Start: 25, End: 40, Text: "short reply"},
		{Speaker: "Alice", Start: 40, End: 55, Text: strings.Repeat("gamma ", 30)},
	}

	first := ChunkTranscript(turns, 120)
	second := ChunkTranscript(turns, 120)
	if !reflect.DeepEqual(first, second) {
		t.Error("re-chunking identical input produced different boundaries")
	}
}

func TestChunkTranscriptEmptyInput(t *testing.T) {
	if chunks := ChunkTranscript(nil, 3000); len(chunks) != 0 {
		t.Errorf("got %d chunks for empty input", len(chunks))
	}
}
