package knowledge

import "testing"

func TestRerankPrefersLexicalMatches(t *testing.T) {
	hits := []Hit{
		{Record: Record{ID: "a", Content: "quarterly revenue and churn numbers"}, Score: 0.80},
		{Record: Record{ID: "b", Content: "deploy pipeline broke during the rollout"}, Score: 0.78},
	}

	got := rerank("deploy rollout", hits)
	if got[0].Record.ID != "b" {
		t.Errorf("rerank winner = %q, want b (contains both query terms)", got[0].Record.ID)
	}
}

func TestRerankEmptyQueryKeepsOrder(t *testing.T) {
	hits := []Hit{
		{Record: Record{ID: "a"}, Score: 0.9},
		{Record: Record{ID: "b"}, Score: 0.8},
	}

	got := rerank("", hits)
	if got[0].Record.ID != "a" || got[1].Record.ID != "b" {
		t.Error("rerank with empty query reordered hits")
	}
}

func TestRerankStableOnTies(t *testing.T) {
	hits := []Hit{
		{Record: Record{ID: "a", Content: "same text"}, Score: 0.5},
		{Record: Record{ID: "b", Content: "same text"}, Score: 0.5},
	}

	got := rerank("same", hits)
	if got[0].Record.ID != "a" {
		t.Error("equal scores should keep original order")
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Q3 Revenue, churn & NRR!")
	want := []string{"q3", "revenue", "churn", "nrr"}
	if len(got) != len(want) {
		t.Fatalf("tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("term %d = %q, want %q", i, got[i], want[i])
		}
	}
}
