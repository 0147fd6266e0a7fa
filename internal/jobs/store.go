package jobs

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/djangbahevans/RainflowCycleCounting/internal/services"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts/domain"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Finished reports whether s is terminal
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ErrJobNotFound is returned for unknown or evicted job ids
var ErrJobNotFound = errors.New("job not found")

// Job is one queued analysis
type Job struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name,omitempty"`
	Status      Status                   `json:"status"`
	Error       string                   `json:"error,omitempty"`
	TraceID     string                   `json:"trace_id,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	StartedAt   *time.Time               `json:"started_at,omitempty"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
	Result      *domain.AnalysisResponse `json:"result,omitempty"`

	input services.AnalysisInput
}

// Filter selects jobs for List. Zero fields match everything.
type Filter struct {
	Status Status
	Since  time.Time
	Limit  int
}

// Store persists jobs
type Store interface {
	Create(job *Job) error
	Get(id string) (*Job, error)
	Update(job *Job) error
	List(filter Filter) ([]*Job, error)
	Delete(id string) error
}

// MemoryStore keeps jobs in memory. Once more than retention jobs have
// finished, the oldest finished ones are evicted.
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	retention int
}

// NewMemoryStore creates a store. A non-positive retention keeps every job.
func NewMemoryStore(retention int) *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[string]*Job),
		retention: retention,
	}
}

// Create adds job
func (s *MemoryStore) Create(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job " + job.ID + " already exists")
	}
	s.jobs[job.ID] = clone(job)
	return nil
}

// Get returns a copy of the job with id
func (s *MemoryStore) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return clone(job), nil
}

// Update replaces a stored job
func (s *MemoryStore) Update(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	s.jobs[job.ID] = clone(job)
	if job.Status.Finished() {
		s.evict()
	}
	return nil
}

// List returns matching jobs, newest first
func (s *MemoryStore) List(filter Filter) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && job.CreatedAt.Before(filter.Since) {
			continue
		}
		result = append(result, clone(job))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Delete removes the job with id
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return ErrJobNotFound
	}
	delete(s.jobs, id)
	return nil
}

// evict drops the oldest finished jobs beyond retention. Callers hold mu.
func (s *MemoryStore) evict() {
	if s.retention <= 0 {
		return
	}
	var finished []*Job
	for _, job := range s.jobs {
		if job.Status.Finished() {
			finished = append(finished, job)
		}
	}
	if len(finished) <= s.retention {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return completedAt(finished[i]).Before(completedAt(finished[j]))
	})
	for _, job := range finished[:len(finished)-s.retention] {
		delete(s.jobs, job.ID)
	}
}

func completedAt(job *Job) time.Time {
	if job.CompletedAt != nil {
		return *job.CompletedAt
	}
	return job.CreatedAt
}

// clone copies the job header. The result is shared; it is never
// modified after completion.
func clone(job *Job) *Job {
	c := *job
	return &c
}
