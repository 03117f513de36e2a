package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
	"github.com/hgottschalk/calaim-assistant/internal/core/mapping"
	"github.com/hgottschalk/calaim-assistant/internal/core/ports"
)

// ProcessJobUseCase runs the extract-recognize-map pipeline for one job.
//
// The error contract drives queue acknowledgement: a nil return means the job
// reached a durable terminal state, including handled pipeline failures that
// were recorded as FAILED. A non-nil return means job state could not be
// persisted and the delivery must be retried.
type ProcessJobUseCase struct {
	store      ports.JobStore
	extractor  ports.TextExtractor
	recognizer ports.EntityRecognizer
	notifier   ports.CallbackNotifier
	threshold  float64
	logger     *slog.Logger
}

func NewProcessJobUseCase(
	store ports.JobStore,
	extractor ports.TextExtractor,
	recognizer ports.EntityRecognizer,
	notifier ports.CallbackNotifier,
	confidenceThreshold float64,
	logger *slog.Logger,
) *ProcessJobUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessJobUseCase{
		store:      store,
		extractor:  extractor,
		recognizer: recognizer,
		notifier:   notifier,
		threshold:  confidenceThreshold,
		logger:     logger,
	}
}

func (uc *ProcessJobUseCase) ProcessByID(ctx context.Context, jobID string) error {
	job, err := uc.store.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	// Redelivered messages for finished jobs are a no-op.
	if job.Status.Terminal() {
		uc.logger.Info("job already terminal, skipping", "job_id", job.ID, "status", job.Status)
		return nil
	}

	if err := uc.store.UpdateStatus(ctx, job.ID, domain.StatusProcessing, "Processing document"); err != nil {
		return fmt.Errorf("mark job %s processing: %w", job.ID, err)
	}

	extraction, err := uc.extractor.Extract(ctx, job.DocumentURI, job.DocumentType)
	if err != nil {
		return uc.fail(ctx, job, fmt.Errorf("extract text: %w", err))
	}

	recognized, err := uc.recognizer.Recognize(ctx, extraction.Text, true)
	if err != nil {
		return uc.fail(ctx, job, fmt.Errorf("recognize entities: %w", err))
	}

	entities := domain.FilterByConfidence(recognized, uc.threshold)
	domains := mapping.MapToDomains(entities)
	result := &domain.JobResult{
		JobID:           job.ID,
		Entities:        entities,
		Domains:         domains,
		ConfidenceScore: mapping.Aggregate(entities, mapping.DefaultWeights),
	}

	if err := uc.store.SaveResult(ctx, result); err != nil {
		return fmt.Errorf("save result for job %s: %w", job.ID, err)
	}
	if err := uc.store.UpdateStatus(ctx, job.ID, domain.StatusCompleted, "Document processed successfully"); err != nil {
		return fmt.Errorf("mark job %s completed: %w", job.ID, err)
	}

	uc.logger.Info("job completed",
		"job_id", job.ID,
		"document_id", job.DocumentID,
		"entities", len(result.Entities),
		"domains", len(result.Domains),
		"confidence", result.ConfidenceScore,
	)

	if job.CallbackURL != "" {
		uc.notifier.Notify(ctx, job.CallbackURL, map[string]any{
			"jobId":           job.ID,
			"status":          string(domain.StatusCompleted),
			"documentId":      job.DocumentID,
			"confidenceScore": result.ConfidenceScore,
			"entitiesCount":   len(result.Entities),
			"domainsCount":    len(result.Domains),
		})
	}
	return nil
}

// fail records the pipeline failure as the job's terminal state. Only a store
// fault propagates; the pipeline error itself is handled here.
func (uc *ProcessJobUseCase) fail(ctx context.Context, job *domain.Job, cause error) error {
	uc.logger.Error("job failed", "job_id", job.ID, "document_id", job.DocumentID, "error", cause)

	if err := uc.store.UpdateStatus(ctx, job.ID, domain.StatusFailed, cause.Error()); err != nil {
		return fmt.Errorf("mark job %s failed: %w", job.ID, err)
	}

	if job.CallbackURL != "" {
		uc.notifier.Notify(ctx, job.CallbackURL, map[string]any{
			"jobId":      job.ID,
			"status":     string(domain.StatusFailed),
			"documentId": job.DocumentID,
			"error":      cause.Error(),
		})
	}
	return nil
}
