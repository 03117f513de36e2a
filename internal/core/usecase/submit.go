package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
	"github.com/hgottschalk/calaim-assistant/internal/core/ports"
)

// SubmitJobUseCase accepts processing requests, persists the PENDING job and
// hands the job ID to the queue. It never touches the document content except
// on the upload path, where the raw bytes go to blob storage first.
type SubmitJobUseCase struct {
	store ports.JobStore
	blobs ports.BlobStore
	queue ports.MessageQueue
}

func NewSubmitJobUseCase(
	store ports.JobStore,
	blobs ports.BlobStore,
	queue ports.MessageQueue,
) *SubmitJobUseCase {
	return &SubmitJobUseCase{
		store: store,
		blobs: blobs,
		queue: queue,
	}
}

func (uc *SubmitJobUseCase) Submit(ctx context.Context, req ports.SubmitRequest) (*domain.Job, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	progress := 0.0
	job := &domain.Job{
		ID:           uuid.NewString(),
		DocumentID:   req.DocumentID,
		DocumentURI:  req.DocumentURI,
		DocumentType: req.DocumentType,
		PatientID:    req.PatientID,
		ReferralID:   req.ReferralID,
		Priority:     normalizePriority(req.Priority),
		CallbackURL:  req.CallbackURL,
		Status:       domain.StatusPending,
		Progress:     &progress,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := uc.queue.PublishJobSubmitted(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish job submitted: %w", err)
	}
	return job, nil
}

// Upload stores the raw document first, then follows the same path as Submit
// with the blob URI standing in for the caller-provided one.
func (uc *SubmitJobUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
	req ports.SubmitRequest,
) (*domain.Job, error) {
	var missing []string
	if req.PatientID == "" {
		missing = append(missing, "patientId")
	}
	if req.ReferralID == "" {
		missing = append(missing, "referralId")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	documentID := req.DocumentID
	if documentID == "" {
		documentID = uuid.NewString()
	}

	key := fmt.Sprintf("%s_%s", documentID, sanitizeFilename(filename))
	uri, err := uc.blobs.Store(ctx, key, body)
	if err != nil {
		return nil, fmt.Errorf("store uploaded document: %w", err)
	}

	req.DocumentID = documentID
	req.DocumentURI = uri
	req.DocumentType = mimeType
	return uc.Submit(ctx, req)
}

func validateSubmit(req ports.SubmitRequest) error {
	var missing []string
	if req.DocumentID == "" {
		missing = append(missing, "documentId")
	}
	if req.DocumentURI == "" {
		missing = append(missing, "documentUri")
	}
	if req.DocumentType == "" {
		missing = append(missing, "documentType")
	}
	if req.PatientID == "" {
		missing = append(missing, "patientId")
	}
	if req.ReferralID == "" {
		missing = append(missing, "referralId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}

	switch req.Priority {
	case "", "low", "normal", "high":
		return nil
	default:
		return fmt.Errorf("%w: priority must be one of low, normal, high", domain.ErrValidation)
	}
}

func normalizePriority(priority string) string {
	if priority == "" {
		return "normal"
	}
	return priority
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
