package segment

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mfcarvalho/examina/internal/pdfdoc"
)

// Numbering patterns tried against every page, in order. Group 1 is always
// the question number.
var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*(\d+)[.)]\s+`),                 // 1. or 1)
	regexp.MustCompile(`(?mi)^\s*Questão\s+(\d+)[.):]?\s*`),    // Questão 1
	regexp.MustCompile(`(?mi)^\s*Q\.?\s*(\d+)[.):]\s*`),        // Q.1 or Q1:
	regexp.MustCompile(`(?m)^\s*(\d+)\s*[–-]\s+`),              // 1 - or 1 –
}

// Regex runs the pattern strategy over every page, translating match
// offsets into whole-document coordinates.
func Regex(pages []pdfdoc.Page) []Candidate {
	var out []Candidate
	for i, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		base := pdfdoc.GlobalOffset(pages, i)
		for _, c := range regexOnText(page.Text) {
			c.Start += base
			c.End += base
			out = append(out, c)
		}
	}
	return out
}

// regexOnText applies the numbering patterns to one block of text.
// Offsets in the returned candidates are local to the block.
func regexOnText(text string) []Candidate {
	type match struct {
		pos    int
		number int
	}

	var matches []match
	for _, pattern := range questionPatterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
			num, err := strconv.Atoi(text[loc[2]:loc[3]])
			if err != nil || num <= 0 {
				continue
			}
			matches = append(matches, match{pos: loc[0], number: num})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	// Collapse matches starting within the window of an accepted one;
	// the same token often satisfies more than one pattern.
	var accepted []match
	lastPos := -collapseWindow - 1
	for _, m := range matches {
		if m.pos-lastPos > collapseWindow {
			accepted = append(accepted, m)
			lastPos = m.pos
		}
	}

	var out []Candidate
	for i, m := range accepted {
		end := len(text)
		if i+1 < len(accepted) {
			end = accepted[i+1].pos
		}
		span := strings.TrimSpace(text[m.pos:end])

		// Short interior spans are numeric noise; the trailing span may
		// be cut off by the page boundary and is kept.
		if len(span) < minSpanChars && i+1 < len(accepted) {
			continue
		}
		if span == "" {
			continue
		}

		out = append(out, Candidate{
			Number: m.number,
			Text:   span,
			Start:  m.pos,
			End:    m.pos + len(span),
		})
	}
	return out
}
