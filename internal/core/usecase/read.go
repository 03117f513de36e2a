package usecase

import (
	"context"
	"fmt"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
	"github.com/hgottschalk/calaim-assistant/internal/core/ports"
)

// ReadJobUseCase serves job status and results lookups.
type ReadJobUseCase struct {
	store ports.JobStore
}

func NewReadJobUseCase(store ports.JobStore) *ReadJobUseCase {
	return &ReadJobUseCase{store: store}
}

func (uc *ReadJobUseCase) GetStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := uc.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job status: %w", err)
	}
	return job, nil
}

// GetResults returns ErrJobNotFound for unknown jobs and ErrNotReady while
// the job has no persisted result yet.
func (uc *ReadJobUseCase) GetResults(ctx context.Context, jobID string) (*domain.JobResult, error) {
	job, err := uc.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.Status != domain.StatusCompleted {
		return nil, fmt.Errorf("job %s is %s: %w", jobID, job.Status, domain.ErrNotReady)
	}

	result, err := uc.store.GetResult(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job result: %w", err)
	}
	return result, nil
}
