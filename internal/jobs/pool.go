package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskName identifies the single task type this pool runs.
const TaskName = "process_pdf"

// ErrQueueFull is returned by Enqueue when the queue cannot accept more work.
var ErrQueueFull = errors.New("job queue full")

// TaskFunc executes one job. The context is cancelled when the task is
// revoked with terminate=true or when the pool shuts down.
type TaskFunc func(ctx context.Context, jobID, path string) error

// ActiveTask describes a task that is queued or currently executing.
type ActiveTask struct {
	ID    string
	JobID string
	Name  string
	Args  []string
}

type task struct {
	id       string
	jobID    string
	path     string
	enqueued time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	revoked bool
}

// revoke marks the task so a worker skips it if still queued, and cancels
// its context if already running.
func (t *task) revoke(terminate bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked = true
	if terminate && t.cancel != nil {
		t.cancel()
	}
}

func (t *task) start(cancel context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.revoked {
		return false
	}
	t.cancel = cancel
	return true
}

// Pool runs jobs on a fixed set of workers sharing a single queue.
// Load balancing falls out of channel semantics.
type Pool struct {
	log         *slog.Logger
	run         TaskFunc
	workerCount int

	queue chan *task

	mu     sync.Mutex
	active map[string]*task

	inFlight atomic.Int32
}

// PoolConfig configures a new Pool.
type PoolConfig struct {
	Logger      *slog.Logger
	WorkerCount int // default 2
	QueueSize   int // default 100
	Run         TaskFunc
}

// NewPool creates a worker pool. Run must be non-nil.
func NewPool(cfg PoolConfig) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 2
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	return &Pool{
		log:         logger.With("component", "jobs", "workers", workerCount),
		run:         cfg.Run,
		workerCount: workerCount,
		queue:       make(chan *task, queueSize),
		active:      make(map[string]*task),
	}
}

// Start launches the workers and blocks until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info("pool starting", "queue_cap", cap(p.queue))

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}

	<-ctx.Done()
	p.log.Info("pool draining", "in_flight", p.InFlight())
	wg.Wait()
	p.log.Info("pool stopped")
}

// Enqueue queues a job for processing and returns the task ID.
func (p *Pool) Enqueue(jobID, path string) (string, error) {
	t := &task{
		id:       uuid.New().String(),
		jobID:    jobID,
		path:     path,
		enqueued: time.Now(),
	}

	p.mu.Lock()
	p.active[t.id] = t
	p.mu.Unlock()

	select {
	case p.queue <- t:
		p.log.Debug("task queued", "task_id", t.id, "job_id", jobID, "queue_len", len(p.queue))
		return t.id, nil
	default:
		p.mu.Lock()
		delete(p.active, t.id)
		p.mu.Unlock()
		p.log.Warn("queue full", "job_id", jobID)
		return "", fmt.Errorf("%w: job %s", ErrQueueFull, jobID)
	}
}

// Active returns the tasks that are queued or executing.
func (p *Pool) Active() []ActiveTask {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ActiveTask, 0, len(p.active))
	for _, t := range p.active {
		out = append(out, ActiveTask{
			ID:    t.id,
			JobID: t.jobID,
			Name:  TaskName,
			Args:  []string{t.jobID, t.path},
		})
	}
	return out
}

// Revoke removes the task for jobID. A queued task is skipped when a worker
// picks it up; a running task has its context cancelled when terminate is
// true. Returns whether a matching task was found.
func (p *Pool) Revoke(jobID string, terminate bool) bool {
	p.mu.Lock()
	var found *task
	for _, t := range p.active {
		if t.jobID == jobID {
			found = t
			break
		}
	}
	p.mu.Unlock()

	if found == nil {
		return false
	}

	found.revoke(terminate)
	p.log.Info("task revoked", "task_id", found.id, "job_id", jobID, "terminate", terminate)
	return true
}

// InFlight reports the number of tasks currently executing.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

func (p *Pool) worker(ctx context.Context, id int) {
	log := p.log.With("worker_id", id)
	log.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			return

		case t := <-p.queue:
			taskCtx, cancel := context.WithCancel(ctx)
			if !t.start(cancel) {
				cancel()
				p.finish(t)
				log.Debug("skipping revoked task", "task_id", t.id, "job_id", t.jobID)
				continue
			}

			log.Debug("task started", "task_id", t.id, "job_id", t.jobID,
				"queued_for", time.Since(t.enqueued))

			p.inFlight.Add(1)
			err := p.run(taskCtx, t.jobID, t.path)
			p.inFlight.Add(-1)
			cancel()
			p.finish(t)

			if err != nil {
				log.Error("task failed", "task_id", t.id, "job_id", t.jobID, "error", err)
			} else {
				log.Debug("task completed", "task_id", t.id, "job_id", t.jobID)
			}
		}
	}
}

func (p *Pool) finish(t *task) {
	p.mu.Lock()
	delete(p.active, t.id)
	p.mu.Unlock()
}
