package segment

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/mfcarvalho/examina/internal/providers"
	"github.com/mfcarvalho/examina/internal/textclean"
)

// QuestionsSchema validates the structured payload the AI strategies and
// the validation pass ask for.
var QuestionsSchema = json.RawMessage(`{
	"type": "object",
	"required": ["questions"],
	"properties": {
		"questions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["number", "text"],
				"properties": {
					"number": {"type": "integer", "minimum": 1},
					"text": {"type": "string"},
					"start": {"type": "integer"},
					"end": {"type": "integer"}
				}
			}
		}
	}
}`)

type questionsPayload struct {
	Questions []Candidate `json:"questions"`
}

// fieldPattern pulls (number, text) pairs out of malformed JSON. (?s) lets
// the text group span raw newlines the model forgot to escape.
var fieldPattern = regexp.MustCompile(`(?s)"number"\s*:\s*(\d+)\s*,\s*"text"\s*:\s*"(.*?)(?:"\s*[,}])`)

// DecodeQuestions recovers a question list from a model response through
// three layers: strict parse with schema validation, a bracket scan for a
// balanced object holding a "questions" key, and finally field-level
// pattern extraction. Returns false only when nothing can be salvaged.
func DecodeQuestions(content string) ([]Candidate, bool) {
	// Layer 1: strict parse.
	if raw, err := providers.ParseStructuredJSON(content); err == nil {
		if providers.ValidateStructuredJSON(QuestionsSchema, raw) == nil {
			var payload questionsPayload
			if json.Unmarshal(raw, &payload) == nil {
				return payload.Questions, true
			}
		}
	}

	// Layer 2: balanced object containing "questions".
	if obj := balancedQuestionsObject(content); obj != "" {
		var payload questionsPayload
		if json.Unmarshal([]byte(obj), &payload) == nil && len(payload.Questions) > 0 {
			return payload.Questions, true
		}
	}

	// Layer 3: field-level extraction from the malformed payload.
	if questions := extractQuestionFields(content); len(questions) > 0 {
		return questions, true
	}

	return nil, false
}

// balancedQuestionsObject finds the object that encloses the "questions"
// key by scanning backwards to its opening brace and forward through
// balanced braces, skipping string literals.
func balancedQuestionsObject(content string) string {
	keyIdx := strings.Index(content, `"questions"`)
	if keyIdx < 0 {
		return ""
	}

	start := strings.LastIndex(content[:keyIdx], "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

// extractQuestionFields pulls (number, text) pairs directly out of a
// malformed payload, unescaping what it can and stripping non-printables.
func extractQuestionFields(content string) []Candidate {
	var out []Candidate
	for _, m := range fieldPattern.FindAllStringSubmatch(content, -1) {
		num, err := strconv.Atoi(m[1])
		if err != nil || num <= 0 {
			continue
		}
		text := unescapeField(m[2])
		text = textclean.StripNonPrintable(text)
		out = append(out, Candidate{
			Number: num,
			Text:   strings.TrimSpace(text),
		})
	}
	return out
}

var fieldUnescaper = strings.NewReplacer(
	`\"`, `"`,
	`\\`, `\`,
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "",
)

func unescapeField(s string) string {
	return fieldUnescaper.Replace(s)
}
