package ports

import (
	"context"
	"io"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

// JobStore persists job lifecycle state and pipeline results. UpdateStatus
// stamps startedAt on the first PROCESSING transition and completedAt on
// terminal transitions; progress becomes 1.0 on COMPLETED and null on FAILED.
// Implementations must support safe concurrent upsert-by-jobID, return
// domain.ErrJobNotFound for unknown ids, and reject lifecycle violations
// (any transition out of a terminal state) with domain.ErrInvalidTransition.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, jobID string) (*domain.Job, error)
	UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, message string) error
	SaveResult(ctx context.Context, result *domain.JobResult) error
	GetResult(ctx context.Context, jobID string) (*domain.JobResult, error)
}

// BlobStore resolves document URIs to raw bytes and stores uploads.
type BlobStore interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Store(ctx context.Context, key string, data io.Reader) (uri string, err error)
}

// TextExtractor turns a document reference into raw text plus an overall
// extraction confidence. Variant selection (mock, Document AI, local) happens
// once at construction time.
type TextExtractor interface {
	Extract(ctx context.Context, documentURI, documentType string) (domain.Extraction, error)
}

// EntityRecognizer turns text into typed, confidence-scored entities.
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string, includeUMLS bool) ([]domain.ExtractedEntity, error)
}

// MessageQueue decouples submission from processing with at-least-once
// delivery. The subscriber handler acks on nil and naks (redelivery) on error.
type MessageQueue interface {
	PublishJobSubmitted(ctx context.Context, jobID string) error
	SubscribeJobSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// CallbackNotifier delivers a best-effort terminal-state notification.
// Delivery failures are logged, never surfaced: job state is already durable
// by the time a callback fires.
type CallbackNotifier interface {
	Notify(ctx context.Context, url string, payload map[string]any)
}
