package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, "Prova ENEM 2024", "enem2024.pdf")
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if job.ID == "" || job.Status != StatusQueued || job.Progress != 0 {
		t.Errorf("unexpected new job: %+v", job)
	}

	log := "[10:00:00] extracting text"
	progress := 15
	if err := s.UpdateJobStatus(ctx, job.ID, StatusExtracting, &log, &progress); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}

	got, err := s.Job(ctx, job.ID)
	if err != nil {
		t.Fatalf("Job() error = %v", err)
	}
	if got.Status != StatusExtracting || got.Progress != 15 || got.StageLog != log {
		t.Errorf("job after update: %+v", got)
	}

	// Status-only update leaves log and progress alone.
	if err := s.UpdateJobStatus(ctx, job.ID, StatusAnalyzing, nil, nil); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	got, _ = s.Job(ctx, job.ID)
	if got.Progress != 15 || got.StageLog != log {
		t.Errorf("partial update clobbered fields: %+v", got)
	}
}

func TestJobNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Job(ctx, "missing"); err != ErrNotFound {
		t.Errorf("Job() error = %v, want ErrNotFound", err)
	}
	if err := s.UpdateJobStatus(ctx, "missing", StatusDone, nil, nil); err == nil {
		t.Error("UpdateJobStatus() on missing job should fail")
	}
}

func TestJobTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusQueued, false},
		{StatusExtracting, false},
		{StatusDone, true},
		{StatusError, true},
		{StatusCancelled, true},
	}
	for _, tt := range tests {
		j := &Job{Status: tt.status}
		if got := j.Terminal(); got != tt.want {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestQuestions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job, _ := s.CreateJob(ctx, "prova", "prova.pdf")

	for i, num := range []int{2, 5, 9} {
		if _, err := s.CreateQuestion(ctx, job.ID, num, i+1, "texto da questão"); err != nil {
			t.Fatalf("CreateQuestion(%d) error = %v", num, err)
		}
	}

	// Duplicate number within the job must be rejected by the schema.
	if _, err := s.CreateQuestion(ctx, job.ID, 5, 4, "duplicada"); err == nil {
		t.Error("duplicate question number should fail")
	}

	questions, err := s.QuestionsByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("QuestionsByJob() error = %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(questions))
	}
	for i, q := range questions {
		if q.Order != i+1 {
			t.Errorf("question %d order = %d, want %d", q.Number, q.Order, i+1)
		}
	}

	q, err := s.QuestionByNumber(ctx, job.ID, 5)
	if err != nil {
		t.Fatalf("QuestionByNumber() error = %v", err)
	}

	n, _ := s.UnformattedCount(ctx, job.ID)
	if n != 3 {
		t.Errorf("UnformattedCount = %d, want 3", n)
	}

	if err := s.MarkFormatted(ctx, q.ID, "**Questão 5** refinada"); err != nil {
		t.Fatalf("MarkFormatted() error = %v", err)
	}
	formatted, _ := s.FormattedQuestions(ctx, job.ID)
	if len(formatted) != 1 || formatted[0].FormattedText != "**Questão 5** refinada" {
		t.Errorf("FormattedQuestions = %+v", formatted)
	}
	if n, _ := s.UnformattedCount(ctx, job.ID); n != 2 {
		t.Errorf("UnformattedCount after formatting = %d, want 2", n)
	}
}

func TestImages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job, _ := s.CreateJob(ctx, "prova", "prova.pdf")
	q, _ := s.CreateQuestion(ctx, job.ID, 1, 1, "questão com figura")

	img1, err := s.CreateImage(ctx, &Image{
		JobID:          job.ID,
		QuestionID:     &q.ID,
		Path:           "http://localhost:8000/images/" + job.ID + "/p1_0.jpg",
		Page:           1,
		ContentHash:    "abc123",
		PerceptualHash: "00ff00ff00ff00ff",
	})
	if err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}
	if img1.ID == 0 {
		t.Error("image id not assigned")
	}

	// Unassociated image with no bbox.
	if _, err := s.CreateImage(ctx, &Image{JobID: job.ID, Path: "u", Page: 2}); err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}

	byJob, err := s.ImagesByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("ImagesByJob() error = %v", err)
	}
	if len(byJob) != 2 {
		t.Fatalf("got %d images, want 2", len(byJob))
	}
	if byJob[0].QuestionID == nil || *byJob[0].QuestionID != q.ID {
		t.Errorf("image 1 question = %v, want %d", byJob[0].QuestionID, q.ID)
	}
	if byJob[1].QuestionID != nil {
		t.Error("image 2 should be unassociated")
	}
	if byJob[1].BBox != nil {
		t.Error("image 2 bbox should be nil")
	}

	byQuestion, err := s.ImagesByQuestion(ctx, q.ID)
	if err != nil {
		t.Fatalf("ImagesByQuestion() error = %v", err)
	}
	if len(byQuestion) != 1 || byQuestion[0].ID != img1.ID {
		t.Errorf("ImagesByQuestion = %+v", byQuestion)
	}
}
