package segment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mfcarvalho/examina/internal/pdfdoc"
	"github.com/mfcarvalho/examina/internal/providers"
)

const extractionSystemPrompt = `You extract numbered exam questions from documents. ` +
	`Always answer with a single JSON object of the shape ` +
	`{"questions": [{"number": <int>, "text": "<string>", "start": <int>, "end": <int>}]}. ` +
	`Escape all control characters inside strings. ` +
	`Truncate any single question's text to at most 2000 characters.`

// Segmenter runs the AI-assisted strategies against a chat client.
type Segmenter struct {
	chat providers.ChatClient
	log  *slog.Logger
}

func NewSegmenter(chat providers.ChatClient, log *slog.Logger) *Segmenter {
	return &Segmenter{chat: chat, log: log.With("component", "segment")}
}

// ByPageGroups asks the model for questions in fixed-size page windows.
// A failed window falls back to the regex strategy over the same text, so
// no window failure loses coverage entirely.
func (s *Segmenter) ByPageGroups(ctx context.Context, pages []pdfdoc.Page) []Candidate {
	var out []Candidate

	for i := 0; i < len(pages); i += pagesPerGroup {
		end := i + pagesPerGroup
		if end > len(pages) {
			end = len(pages)
		}

		texts := make([]string, 0, end-i)
		for _, p := range pages[i:end] {
			texts = append(texts, p.Text)
		}
		windowText := strings.Join(texts, pdfdoc.PageSeparator)
		if strings.TrimSpace(windowText) == "" {
			continue
		}
		base := pdfdoc.GlobalOffset(pages, i)

		candidates, err := s.requestQuestions(ctx, windowText)
		if err != nil {
			s.log.Warn("page group extraction failed, falling back to regex",
				"pages", fmt.Sprintf("%d-%d", pages[i].Number, pages[end-1].Number),
				"error", err)
			candidates = regexOnText(windowText)
		}

		for _, c := range candidates {
			c.Start += base
			c.End += base
			out = append(out, c)
		}
	}
	return out
}

// FullText asks the model for questions over the whole document, split
// into word-bounded chunks. A chunk whose response cannot be salvaged is
// skipped; chunk failures are never fatal to the run.
func (s *Segmenter) FullText(ctx context.Context, fullText string) []Candidate {
	var out []Candidate

	for _, chunk := range ChunkByWords(fullText, maxChunkChars) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		base := rebaseOffset(fullText, chunk)

		candidates, err := s.requestQuestions(ctx, Truncate(chunk, maxRequestChars))
		if err != nil {
			s.log.Warn("skipping chunk", "chunk_len", len(chunk), "error", err)
			continue
		}

		for _, c := range candidates {
			if base >= 0 {
				c.Start += base
				c.End += base
			}
			out = append(out, c)
		}
	}
	return out
}

// requestQuestions sends one extraction request and runs the layered
// decoder over whatever comes back.
func (s *Segmenter) requestQuestions(ctx context.Context, text string) ([]Candidate, error) {
	result, err := s.chat.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: "Extract every numbered question from this exam text:\n\n" + text},
		},
		Temperature:    0.1,
		ResponseFormat: &providers.ResponseFormat{Type: "json_object", JSONSchema: QuestionsSchema},
	})
	if err != nil {
		return nil, err
	}

	candidates, ok := DecodeQuestions(result.Content)
	if !ok {
		return nil, fmt.Errorf("unrecoverable response payload")
	}

	for i := range candidates {
		candidates[i].Text = Truncate(strings.TrimSpace(candidates[i].Text), MaxQuestionChars)
	}
	return candidates, nil
}

// ChunkByWords splits text into chunks of at most max bytes, cutting on
// whitespace so no word is split across chunks.
func ChunkByWords(text string, max int) []string {
	if max <= 0 || len(text) <= max {
		return []string{text}
	}

	var chunks []string
	for len(text) > max {
		cut := strings.LastIndexAny(text[:max+1], " \n\t")
		if cut <= 0 {
			cut = max
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], " \n\t"))
		text = strings.TrimLeft(text[cut:], " \n\t")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// rebaseOffset locates a chunk's starting fragment in the full document
// text so per-chunk offsets can be translated to document coordinates.
// Returns -1 when the fragment cannot be found.
func rebaseOffset(fullText, chunk string) int {
	fragment := chunk
	if len(fragment) > 50 {
		fragment = fragment[:50]
	}
	if fragment == "" {
		return -1
	}
	return strings.Index(fullText, fragment)
}
