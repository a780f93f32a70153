// Package segment locates numbered exam questions in extracted document
// text. Three independent strategies produce candidate sets; Merge is the
// single deduplication point that reconciles them.
package segment

import "sort"

const (
	// Matches closer together than this are the same numbering token
	// seen by more than one pattern.
	collapseWindow = 10

	// Spans shorter than this are numeric tokens without question
	// content. The final span on a page is exempt since it may be
	// legitimately truncated by the page boundary.
	minSpanChars = 20

	// Strategy B window size in pages.
	pagesPerGroup = 3

	// Strategy C chunking limits.
	maxChunkChars   = 12000
	maxRequestChars = 8000

	// Cap on a single question's text in any AI request or response.
	MaxQuestionChars = 2000
)

// Candidate is one strategy's sighting of a question.
type Candidate struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Start  int    `json:"start"` // offset in the joined document text
	End    int    `json:"end"`
}

// Merge reconciles candidate lists by question number: when two candidates
// share a number the one with strictly longer text wins (ties keep the
// first seen). The result is sorted ascending by number.
func Merge(lists ...[]Candidate) []Candidate {
	merged := make(map[int]Candidate)

	for _, list := range lists {
		for _, c := range list {
			if c.Number <= 0 {
				continue
			}
			existing, ok := merged[c.Number]
			if !ok || len(c.Text) > len(existing.Text) {
				merged[c.Number] = c
			}
		}
	}

	out := make([]Candidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Truncate caps a question's text for inclusion in an AI payload.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	return text[:max]
}
