package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job is one document-analysis run for one uploaded PDF.
type Job struct {
	ID        string
	Name      string
	Filename  string
	Status    string
	StageLog  string
	Progress  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	switch j.Status {
	case StatusDone, StatusError, StatusCancelled:
		return true
	}
	return false
}

// CreateJob inserts a queued job and returns it.
func (s *Store) CreateJob(ctx context.Context, name, filename string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.New().String(),
		Name:      name,
		Filename:  filename,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, name, filename, status, stage_log, progress, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '', 0, ?, ?)`,
		job.ID, job.Name, job.Filename, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.log.Info("job created", "job_id", job.ID, "filename", filename)
	return job, nil
}

// Job fetches one job by ID.
func (s *Store) Job(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, filename, status, stage_log, progress, created_at, updated_at
		 FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// Jobs lists all jobs, newest first.
func (s *Store) Jobs(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, filename, status, stage_log, progress, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus writes a job's status and, when non-nil, its stage log
// and progress. Each call is one independent write.
func (s *Store) UpdateJobStatus(ctx context.Context, id, status string, stageLog *string, progress *int) error {
	query := "UPDATE jobs SET status = ?, updated_at = ?"
	args := []any{status, time.Now().UTC()}

	if stageLog != nil {
		query += ", stage_log = ?"
		args = append(args, *stageLog)
	}
	if progress != nil {
		query += ", progress = ?"
		args = append(args, *progress)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	err := row.Scan(&job.ID, &job.Name, &job.Filename, &job.Status,
		&job.StageLog, &job.Progress, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return &job, nil
}
