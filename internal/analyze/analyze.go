// Package analyze runs the AI refinement passes over segmented questions:
// a batched validation pass and the image-question association pass.
package analyze

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/mfcarvalho/examina/internal/providers"
	"github.com/mfcarvalho/examina/internal/segment"
)

const (
	// Questions per validation request, bounding request size.
	validationBatchSize = 30

	// Leading slice of the document included in each validation request.
	textSampleChars = 10000
)

// Analyzer wraps a chat client for the refinement passes.
type Analyzer struct {
	chat providers.ChatClient
	log  *slog.Logger
}

func New(chat providers.ChatClient, log *slog.Logger) *Analyzer {
	return &Analyzer{chat: chat, log: log.With("component", "analyze")}
}

// ValidateQuestions asks the model to refine the merged question list in
// fixed-size batches. A batch whose response cannot be salvaged keeps its
// pre-validation questions unchanged; validation never drops a batch. The
// returned set carries exactly the input's question numbers, re-sorted
// ascending.
func (a *Analyzer) ValidateQuestions(ctx context.Context, questions []segment.Candidate, fullText string) []segment.Candidate {
	if len(questions) == 0 {
		return nil
	}

	sample := fullText
	if len(sample) > textSampleChars {
		sample = sample[:textSampleChars]
	}

	var validated []segment.Candidate
	for start := 0; start < len(questions); start += validationBatchSize {
		end := start + validationBatchSize
		if end > len(questions) {
			end = len(questions)
		}
		batch := prepareBatch(questions[start:end])

		refined, err := a.validateBatch(ctx, batch, sample)
		if err != nil {
			a.log.Warn("validation batch failed, keeping original questions",
				"batch_start", start, "batch_size", len(batch), "error", err)
			validated = append(validated, batch...)
			continue
		}
		validated = append(validated, reconcileBatch(batch, refined)...)
	}

	sort.Slice(validated, func(i, j int) bool { return validated[i].Number < validated[j].Number })
	return validated
}

func (a *Analyzer) validateBatch(ctx context.Context, batch []segment.Candidate, sample string) ([]segment.Candidate, error) {
	payload, err := json.Marshal(struct {
		Questions []segment.Candidate `json:"questions"`
	}{batch})
	if err != nil {
		return nil, err
	}

	result, err := a.chat.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: validationSystemPrompt},
			{Role: "user", Content: validationPrompt(sample, string(payload))},
		},
		Temperature:    0.3,
		ResponseFormat: &providers.ResponseFormat{Type: "json_object", JSONSchema: segment.QuestionsSchema},
	})
	if err != nil {
		return nil, err
	}

	refined, ok := segment.DecodeQuestions(result.Content)
	if !ok {
		return nil, errUnrecoverablePayload
	}
	return refined, nil
}

// prepareBatch copies the batch with each question's text capped for the
// request payload.
func prepareBatch(batch []segment.Candidate) []segment.Candidate {
	out := make([]segment.Candidate, len(batch))
	for i, q := range batch {
		q.Text = segment.Truncate(q.Text, segment.MaxQuestionChars)
		out[i] = q
	}
	return out
}

// reconcileBatch pins the refined set to the original batch's numbers:
// numbers the model invented are dropped, numbers it omitted come back
// with their pre-validation text. Only the text is taken from the model;
// document offsets stay with the input candidate, since page attribution
// during association derives from Start.
func reconcileBatch(original, refined []segment.Candidate) []segment.Candidate {
	inBatch := make(map[int]segment.Candidate, len(original))
	for _, q := range original {
		inBatch[q.Number] = q
	}

	out := make([]segment.Candidate, 0, len(original))
	seen := make(map[int]bool, len(original))
	for _, q := range refined {
		orig, ok := inBatch[q.Number]
		if !ok || seen[q.Number] {
			continue
		}
		orig.Text = segment.Truncate(strings.TrimSpace(q.Text), segment.MaxQuestionChars)
		seen[q.Number] = true
		out = append(out, orig)
	}
	for _, q := range original {
		if !seen[q.Number] {
			out = append(out, q)
		}
	}
	return out
}
