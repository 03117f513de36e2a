// Package memory is a process-local job store for single-binary deployments
// and tests. It enforces the same lifecycle stamping rules as the postgres
// store and is safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]domain.Job
	results map[string]domain.JobResult
}

func NewJobStore() *JobStore {
	return &JobStore{
		jobs:    make(map[string]domain.Job),
		results: make(map[string]domain.JobResult),
	}
}

func (s *JobStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job already exists: %s", job.ID)
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *JobStore) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", jobID))
	}
	copyJob := job
	return &copyJob, nil
}

func (s *JobStore) UpdateStatus(_ context.Context, jobID string, status domain.JobStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return domain.WrapError(domain.ErrJobNotFound, "update job status", fmt.Errorf("id=%s", jobID))
	}
	// A repeated PROCESSING stamp happens on queue redelivery after a worker
	// crash; terminal states are never restamped.
	if !job.Status.CanTransitionTo(status) && !(job.Status == status && !job.Status.Terminal()) {
		return domain.WrapError(domain.ErrInvalidTransition, "update job status",
			fmt.Errorf("%s to %s", job.Status, status))
	}

	now := time.Now().UTC()
	job.Status = status
	job.Message = message
	job.UpdatedAt = now

	switch status {
	case domain.StatusProcessing:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
		if job.Progress == nil {
			zero := 0.0
			job.Progress = &zero
		}
	case domain.StatusCompleted:
		job.CompletedAt = &now
		one := 1.0
		job.Progress = &one
	case domain.StatusFailed:
		job.CompletedAt = &now
		job.Progress = nil
	}

	s.jobs[jobID] = job
	return nil
}

func (s *JobStore) SaveResult(_ context.Context, result *domain.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[result.JobID] = *result
	return nil
}

func (s *JobStore) GetResult(_ context.Context, jobID string) (*domain.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[jobID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotReady, "get job result", fmt.Errorf("id=%s", jobID))
	}
	copyResult := result
	return &copyResult, nil
}
