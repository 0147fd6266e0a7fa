package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/djangbahevans/RainflowCycleCounting/internal/infrastructure"
	"github.com/djangbahevans/RainflowCycleCounting/internal/services"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts/domain"
)

var (
	ErrQueueFull    = errors.New("job queue is full")
	ErrQueueStopped = errors.New("job queue stopped")
	ErrJobFinished  = errors.New("job already finished")
)

// Analyzer runs one analysis. *services.AnalysisService implements it.
type Analyzer interface {
	Analyze(ctx context.Context, in services.AnalysisInput) (*domain.AnalysisResponse, error)
}

// Queue executes analysis jobs on a fixed worker pool
type Queue struct {
	// mu orders status transitions between Cancel and the workers
	mu       sync.Mutex
	active   map[string]context.CancelFunc
	jobs     chan string
	workers  int
	wg       sync.WaitGroup
	store    Store
	analyzer Analyzer
	logger   *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	shutdown  chan struct{}
}

// NewQueue creates a queue holding up to size pending jobs
func NewQueue(workers, size int, store Store, analyzer Analyzer, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = workers * 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		active:   make(map[string]context.CancelFunc),
		jobs:     make(chan string, size),
		workers:  workers,
		store:    store,
		analyzer: analyzer,
		logger:   infrastructure.WithComponent(logger, "jobqueue"),
		shutdown: make(chan struct{}),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		q.logger.InfoContext(ctx, "starting job queue", slog.Int("workers", q.workers))
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(ctx, i)
		}
	})
}

// Stop waits up to timeout for running jobs, then cancels the jobs that
// never started.
func (q *Queue) Stop(timeout time.Duration) error {
	q.stopOnce.Do(func() { close(q.shutdown) })

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		q.logger.Warn("job queue stop timeout exceeded")
		return fmt.Errorf("timeout waiting for job workers to finish")
	}

	for {
		select {
		case id := <-q.jobs:
			q.finishPending(id, StatusCancelled, ErrQueueStopped.Error())
		default:
			q.logger.Info("job queue stopped")
			return nil
		}
	}
}

// Enqueue stores a pending job for in and hands it to the workers
func (q *Queue) Enqueue(ctx context.Context, in services.AnalysisInput) (*Job, error) {
	select {
	case <-q.shutdown:
		return nil, ErrQueueStopped
	default:
	}

	job := &Job{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Status:    StatusPending,
		TraceID:   infrastructure.GetTraceID(ctx),
		CreatedAt: time.Now().UTC(),
		input:     in,
	}
	if err := q.store.Create(job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case q.jobs <- job.ID:
		q.logger.InfoContext(ctx, "job enqueued", slog.String("job_id", job.ID))
		return clone(job), nil
	default:
		q.finishPending(job.ID, StatusFailed, ErrQueueFull.Error())
		return nil, ErrQueueFull
	}
}

// Get returns the job with id
func (q *Queue) Get(id string) (*Job, error) {
	return q.store.Get(id)
}

// List returns jobs matching filter, newest first
func (q *Queue) List(filter Filter) ([]*Job, error) {
	return q.store.List(filter)
}

// Cancel stops a running job or drops a pending one
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cancel, ok := q.active[id]; ok {
		cancel()
		return nil
	}

	job, err := q.store.Get(id)
	if err != nil {
		return err
	}
	if job.Status.Finished() {
		return ErrJobFinished
	}
	now := time.Now().UTC()
	job.Status = StatusCancelled
	job.CompletedAt = &now
	return q.store.Update(job)
}

func (q *Queue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case id := <-q.jobs:
			q.process(ctx, id, logger.With(slog.String("job_id", id)))
		}
	}
}

func (q *Queue) process(ctx context.Context, id string, logger *slog.Logger) {
	job, jobCtx, ok := q.begin(ctx, id, logger)
	if !ok {
		return
	}

	resp, err := q.run(jobCtx, job.input)
	cancelled := jobCtx.Err() != nil && ctx.Err() == nil

	q.mu.Lock()
	defer q.mu.Unlock()
	q.active[id]()
	delete(q.active, id)

	now := time.Now().UTC()
	job.CompletedAt = &now
	switch {
	case err == nil:
		job.Status = StatusCompleted
		job.Result = resp
		logger.InfoContext(jobCtx, "job completed")
	case cancelled:
		job.Status = StatusCancelled
		job.Error = "cancelled"
		logger.InfoContext(jobCtx, "job cancelled")
	default:
		job.Status = StatusFailed
		job.Error = err.Error()
		logger.WarnContext(jobCtx, "job failed", slog.String("error", err.Error()))
	}

	if err := q.store.Update(job); err != nil {
		logger.Error("failed to update job", slog.String("error", err.Error()))
	}
}

// begin moves a pending job to running and registers its cancel func
func (q *Queue) begin(ctx context.Context, id string, logger *slog.Logger) (*Job, context.Context, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.Get(id)
	if err != nil {
		logger.Warn("queued job missing from store", slog.String("error", err.Error()))
		return nil, nil, false
	}
	if job.Status != StatusPending {
		logger.Debug("skipping job", slog.String("status", string(job.Status)))
		return nil, nil, false
	}

	jobCtx, cancel := context.WithCancel(ctx)
	if job.TraceID != "" {
		jobCtx = infrastructure.WithTraceID(jobCtx, job.TraceID)
	}
	q.active[id] = cancel

	now := time.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &now
	if err := q.store.Update(job); err != nil {
		logger.Error("failed to update job status", slog.String("error", err.Error()))
	}
	return job, jobCtx, true
}

// run calls the analyzer, turning a panic into an error
func (q *Queue) run(ctx context.Context, in services.AnalysisInput) (resp *domain.AnalysisResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(ctx, "job processing panicked", slog.Any("panic", r))
			err = fmt.Errorf("job processing panicked: %v", r)
		}
	}()
	return q.analyzer.Analyze(ctx, in)
}

func (q *Queue) finishPending(id string, status Status, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.Get(id)
	if err != nil || job.Status != StatusPending {
		return
	}
	now := time.Now().UTC()
	job.Status = status
	job.Error = reason
	job.CompletedAt = &now
	if err := q.store.Update(job); err != nil {
		q.logger.Error("failed to update job", slog.String("job_id", id), slog.String("error", err.Error()))
	}
}
