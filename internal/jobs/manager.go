package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfcarvalho/examina/internal/store"
)

// Manager ties job records to the worker pool. It creates records, queues
// work, and handles cancellation.
type Manager struct {
	store *store.Store
	pool  *Pool
	log   *slog.Logger
}

// NewManager creates a job manager.
func NewManager(st *store.Store, pool *Pool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store: st,
		pool:  pool,
		log:   logger.With("component", "jobs"),
	}
}

// Submit creates a job record and queues it for processing. srcPath is the
// uploaded file staged under the uploads directory; the pipeline removes it
// when the run ends.
func (m *Manager) Submit(ctx context.Context, name, filename, srcPath string) (*store.Job, error) {
	job, err := m.store.CreateJob(ctx, name, filename)
	if err != nil {
		return nil, fmt.Errorf("creating job record: %w", err)
	}

	if _, err := m.pool.Enqueue(job.ID, srcPath); err != nil {
		zero := 0
		msg := "queue full"
		if uerr := m.store.UpdateJobStatus(ctx, job.ID, store.StatusError, &msg, &zero); uerr != nil {
			m.log.Error("marking unqueued job failed", "job_id", job.ID, "error", uerr)
		}
		return nil, err
	}

	m.log.Info("job submitted", "job_id", job.ID, "name", name, "filename", filename)
	return job, nil
}

// Cancel revokes the job's task and persists the cancelled status. The two
// actions are independent: the status is written even when no task is found,
// so a job whose worker already exited still ends up cancelled.
func (m *Manager) Cancel(ctx context.Context, jobID string) (bool, error) {
	revoked := m.pool.Revoke(jobID, true)

	zero := 0
	if err := m.store.UpdateJobStatus(ctx, jobID, store.StatusCancelled, nil, &zero); err != nil {
		return revoked, fmt.Errorf("persisting cancellation: %w", err)
	}

	m.log.Info("job cancelled", "job_id", jobID, "task_revoked", revoked)
	return revoked, nil
}

// Get returns a job record by ID.
func (m *Manager) Get(ctx context.Context, jobID string) (*store.Job, error) {
	return m.store.Job(ctx, jobID)
}

// List returns all job records, newest first.
func (m *Manager) List(ctx context.Context) ([]*store.Job, error) {
	return m.store.Jobs(ctx)
}

// Active returns the pool's queued and executing tasks.
func (m *Manager) Active() []ActiveTask {
	return m.pool.Active()
}
