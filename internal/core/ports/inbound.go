package ports

import (
	"context"
	"io"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

// SubmitRequest carries everything the intake API knows about a document.
type SubmitRequest struct {
	DocumentID   string
	DocumentURI  string
	DocumentType string
	PatientID    string
	ReferralID   string
	Priority     string
	CallbackURL  string
}

// JobSubmitter is the inbound contract for accepting processing work. Submit
// returns as soon as the PENDING job is durable; it never waits on extraction.
type JobSubmitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*domain.Job, error)
	Upload(ctx context.Context, filename, mimeType string, body io.Reader, req SubmitRequest) (*domain.Job, error)
}

// JobProcessor is the inbound contract for asynchronous job execution. A nil
// return means the job reached a durable terminal state (success or handled
// pipeline failure); an error means the attempt must be redelivered.
type JobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}

// JobReader exposes read-only job state and results.
type JobReader interface {
	GetStatus(ctx context.Context, jobID string) (*domain.Job, error)
	GetResults(ctx context.Context, jobID string) (*domain.JobResult, error)
}

// TextAnalyzer is the stateless NLP surface usable without a job.
type TextAnalyzer interface {
	RecognizeEntities(ctx context.Context, text string, threshold *float64, includeUMLS bool) ([]domain.ExtractedEntity, error)
	MapDomains(entities []domain.ExtractedEntity) []domain.DomainSuggestion
}
