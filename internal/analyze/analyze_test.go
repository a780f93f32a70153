package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/mfcarvalho/examina/internal/providers"
	"github.com/mfcarvalho/examina/internal/segment"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestValidateQuestionsRefinesText(t *testing.T) {
	mock := providers.NewMockChatClient()
	mock.ResponseText = `{"questions": [
		{"number": 1, "text": "Qual é a capital do Brasil?"},
		{"number": 2, "text": "Quanto é 2 + 2?"}
	]}`

	a := New(mock, testLogger())
	got := a.ValidateQuestions(context.Background(), []segment.Candidate{
		{Number: 1, Text: "1. Qual é a capital do Brasil"},
		{Number: 2, Text: "2. Quanto é 2+2"},
	}, "texto completo da prova")

	if len(got) != 2 {
		t.Fatalf("got %d questions, want 2", len(got))
	}
	if got[0].Text != "Qual é a capital do Brasil?" {
		t.Errorf("question 1 text not refined: %q", got[0].Text)
	}
}

func TestValidateQuestionsKeepsBatchOnFailure(t *testing.T) {
	mock := providers.NewMockChatClient()
	mock.ShouldFail = true

	original := []segment.Candidate{
		{Number: 1, Text: "primeira questão"},
		{Number: 2, Text: "segunda questão"},
	}

	a := New(mock, testLogger())
	got := a.ValidateQuestions(context.Background(), original, "texto")

	if len(got) != 2 {
		t.Fatalf("failed batch must keep its questions, got %d", len(got))
	}
	for i := range got {
		if got[i].Number != original[i].Number || got[i].Text != original[i].Text {
			t.Errorf("question %d changed on failure: %+v", i, got[i])
		}
	}
}

func TestValidateQuestionsPinsNumberSet(t *testing.T) {
	// Model invents number 9 and omits number 2.
	mock := providers.NewMockChatClient()
	mock.ResponseText = `{"questions": [
		{"number": 1, "text": "refinada"},
		{"number": 9, "text": "inventada"}
	]}`

	a := New(mock, testLogger())
	got := a.ValidateQuestions(context.Background(), []segment.Candidate{
		{Number: 1, Text: "original um"},
		{Number: 2, Text: "original dois"},
	}, "texto")

	if len(got) != 2 {
		t.Fatalf("got %d questions, want 2: %+v", len(got), got)
	}
	if got[0].Number != 1 || got[0].Text != "refinada" {
		t.Errorf("question 1 = %+v", got[0])
	}
	if got[1].Number != 2 || got[1].Text != "original dois" {
		t.Errorf("omitted question must come back unchanged: %+v", got[1])
	}
}

func TestValidateQuestionsKeepsOffsets(t *testing.T) {
	// Model responses carry no start/end; refined questions must keep the
	// input offsets or every question lands on page 1 during association.
	mock := providers.NewMockChatClient()
	mock.ResponseText = `{"questions": [
		{"number": 1, "text": "refinada um"},
		{"number": 2, "text": "refinada dois"}
	]}`

	a := New(mock, testLogger())
	got := a.ValidateQuestions(context.Background(), []segment.Candidate{
		{Number: 1, Text: "original um", Start: 1200, End: 1350},
		{Number: 2, Text: "original dois", Start: 4100, End: 4260},
	}, "texto")

	if len(got) != 2 {
		t.Fatalf("got %d questions, want 2", len(got))
	}
	if got[0].Text != "refinada um" || got[0].Start != 1200 || got[0].End != 1350 {
		t.Errorf("question 1 = %+v, want refined text with offsets 1200..1350", got[0])
	}
	if got[1].Text != "refinada dois" || got[1].Start != 4100 || got[1].End != 4260 {
		t.Errorf("question 2 = %+v, want refined text with offsets 4100..4260", got[1])
	}
}

func TestValidateQuestionsBatches(t *testing.T) {
	var batchSizes []int
	mock := providers.NewMockChatClient()
	mock.ChatFunc = func(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResult, error) {
		// Count questions in the compactly marshaled request payload.
		// The prose parts of the prompt always put a space after the colon.
		n := strings.Count(req.Messages[1].Content, `"text":"`)
		batchSizes = append(batchSizes, n)
		return &providers.ChatResult{Success: true, Content: `{"questions": []}`}, nil
	}

	questions := make([]segment.Candidate, 70)
	for i := range questions {
		questions[i] = segment.Candidate{Number: i + 1, Text: fmt.Sprintf("questão %d", i+1)}
	}

	a := New(mock, testLogger())
	got := a.ValidateQuestions(context.Background(), questions, "texto")

	if len(batchSizes) != 3 {
		t.Fatalf("70 questions should validate in 3 batches, got %d", len(batchSizes))
	}
	if batchSizes[0] != 30 || batchSizes[1] != 30 || batchSizes[2] != 10 {
		t.Errorf("batch sizes = %v, want [30 30 10]", batchSizes)
	}
	// Empty refined batches keep all originals.
	if len(got) != 70 {
		t.Errorf("got %d questions, want 70", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Number <= got[i-1].Number {
			t.Fatalf("output not sorted ascending at index %d", i)
		}
	}
}

func TestValidateQuestionsEmpty(t *testing.T) {
	a := New(providers.NewMockChatClient(), testLogger())
	if got := a.ValidateQuestions(context.Background(), nil, "texto"); got != nil {
		t.Errorf("expected nil for empty input, got %+v", got)
	}
}
