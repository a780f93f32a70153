// Package textclean repairs text extracted from PDFs and OCR output.
// Scanned exams routinely come back with broken encoding (accents rendered
// as stray digits inside words) and control characters that upset both the
// database and downstream JSON payloads.
package textclean

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// specificCorrections maps OCR digit-artifact words to their intended
// Portuguese forms. The digit varies with the source font, so each entry is
// a pattern over the digit position.
var specificCorrections = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)tambe\dm`), "também"},
	{regexp.MustCompile(`(?i)podere\d`), "poderá"},
	{regexp.MustCompile(`(?i)mate\dria`), "matéria"},
	{regexp.MustCompile(`(?i)justie\da`), "Justiça"},
	{regexp.MustCompile(`(?i)antf\dnio`), "Antônio"},
	{regexp.MustCompile(`(?i)importunae\de\do`), "importunação"},
	{regexp.MustCompile(`(?i)\bne\do\b`), "não"},
}

// digitArtifacts are broader digit-between-letters repairs, applied after
// the specific corrections. Each digit class maps to the accented letter the
// extractor most commonly mangles into it.
var digitArtifacts = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)(\pL{2,})9(\pL{2,})`), "${1}m${2}"},
	{regexp.MustCompile(`(?i)(\pL{2,})7(\pL{2,})`), "${1}ç${2}"},
	{regexp.MustCompile(`(?i)(\pL{2,})4(\pL{2,})`), "${1}ã${2}"},
	{regexp.MustCompile(`(?i)(\pL{2,})3(\pL{2,})`), "${1}ã${2}"},
	{regexp.MustCompile(`(?i)(\pL{2,})1(\pL{2,})`), "${1}á${2}"},
}

var (
	aoIsolated  = regexp.MustCompile(`(?i)\be0\b`)
	aoSuffix    = regexp.MustCompile(`(?i)(\pL+)e0(\s)`)
	aoInfix     = regexp.MustCompile(`(?i)(\pL+)e0(\pL)`)
	multiSpace  = regexp.MustCompile(`[ \t]+`)
	multiBlank  = regexp.MustCompile(`\n{3,}`)
	spacedLines = regexp.MustCompile(` ?\n ?`)
)

// Clean normalizes encoding, strips control characters and repairs common
// OCR digit artifacts. Safe on empty input.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFC.String(text)

	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r", " ")
	text = stripControl(text)

	for _, c := range specificCorrections {
		text = c.re.ReplaceAllString(text, c.replacement)
	}

	text = aoIsolated.ReplaceAllString(text, "ao")
	text = aoSuffix.ReplaceAllString(text, "${1}ao${2}")
	text = aoInfix.ReplaceAllString(text, "${1}ao${2}")

	for _, a := range digitArtifacts {
		text = a.re.ReplaceAllString(text, a.replacement)
	}

	text = multiSpace.ReplaceAllString(text, " ")
	text = spacedLines.ReplaceAllString(text, "\n")
	text = multiBlank.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// CleanAndValidate cleans text and returns "" when the result carries no
// usable content.
func CleanAndValidate(text string) string {
	cleaned := Clean(text)
	if len(strings.TrimSpace(cleaned)) < 3 {
		return ""
	}
	return cleaned
}

// StripNonPrintable removes characters below 0x20 except newline and tab.
// Exported separately because the structured-output repair path needs it on
// payload fragments without the rest of the cleanup.
func StripNonPrintable(text string) string {
	return stripControl(text)
}

func stripControl(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= 32 || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
