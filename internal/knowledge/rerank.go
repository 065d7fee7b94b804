package knowledge

import (
	"sort"
	"strings"
	"unicode"
)

// lexicalWeight balances the rerank signal against the vector score.
// Vector similarity stays dominant; term overlap breaks near-ties in
// favor of candidates that literally contain the query words.
const lexicalWeight = 0.3

// rerank rescores candidates by combining vector similarity with the
// fraction of query terms present in the record body, then sorts by the
// combined score. Stable so equal scores keep the index ordering.
func rerank(query string, hits []Hit) []Hit {
	terms := tokenize(query)
	if len(terms) == 0 {
		return hits
	}

	for i := range hits {
		content := strings.ToLower(hits[i].Record.Content)
		matched := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				matched++
			}
		}
		overlap := float32(matched) / float32(len(terms))
		hits[i].Score += lexicalWeight * overlap
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	return hits
}

// tokenize lowercases and splits on non-letter/digit runes, dropping
// single-rune fragments that add noise.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			terms = append(terms, f)
		}
	}
	return terms
}
