package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Question is one extracted exam question belonging to a job.
type Question struct {
	ID            int64
	JobID         string
	Number        int
	Order         int // dense 1..N, ascending by Number
	RawText       string
	FormattedText string
	Formatted     bool
	CreatedAt     time.Time
}

// CreateQuestion inserts one question. Number must be unique per job.
func (s *Store) CreateQuestion(ctx context.Context, jobID string, number, order int, rawText string) (*Question, error) {
	q := &Question{
		JobID:     jobID,
		Number:    number,
		Order:     order,
		RawText:   rawText,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (job_id, number, ord, raw_text, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		q.JobID, q.Number, q.Order, q.RawText, q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create question %d: %w", number, err)
	}
	q.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read question id: %w", err)
	}
	return q, nil
}

// QuestionsByJob returns a job's questions in persisted order.
func (s *Store) QuestionsByJob(ctx context.Context, jobID string) ([]*Question, error) {
	return s.questions(ctx,
		`SELECT id, job_id, number, ord, raw_text, formatted_text, formatted, created_at
		 FROM questions WHERE job_id = ? ORDER BY ord`, jobID)
}

// QuestionByNumber finds a job's question with the given number.
func (s *Store) QuestionByNumber(ctx context.Context, jobID string, number int) (*Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, job_id, number, ord, raw_text, formatted_text, formatted, created_at
		 FROM questions WHERE job_id = ? AND number = ?`, jobID, number)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// FormattedQuestions returns a job's questions that the downstream
// formatting collaborator has already processed.
func (s *Store) FormattedQuestions(ctx context.Context, jobID string) ([]*Question, error) {
	return s.questions(ctx,
		`SELECT id, job_id, number, ord, raw_text, formatted_text, formatted, created_at
		 FROM questions WHERE job_id = ? AND formatted = 1 ORDER BY ord`, jobID)
}

// UnformattedCount reports how many of a job's questions still await
// formatting.
func (s *Store) UnformattedCount(ctx context.Context, jobID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE job_id = ? AND formatted = 0`, jobID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unformatted questions: %w", err)
	}
	return n, nil
}

// MarkFormatted records the formatting collaborator's output for one
// question.
func (s *Store) MarkFormatted(ctx context.Context, questionID int64, formattedText string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET formatted_text = ?, formatted = 1 WHERE id = ?`,
		formattedText, questionID)
	if err != nil {
		return fmt.Errorf("failed to mark question formatted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	return nil
}

func (s *Store) questions(ctx context.Context, query string, args ...any) ([]*Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var out []*Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanQuestion(row rowScanner) (*Question, error) {
	var q Question
	var formatted sql.NullString
	err := row.Scan(&q.ID, &q.JobID, &q.Number, &q.Order, &q.RawText,
		&formatted, &q.Formatted, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan question: %w", err)
	}
	q.FormattedText = formatted.String
	return &q, nil
}
