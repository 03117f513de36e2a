package domain

import "time"

type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether no further transition may leave the status.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo encodes the forward-only job lifecycle:
// PENDING -> PROCESSING -> {COMPLETED, FAILED}.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Job tracks one asynchronous document-processing request. The ID is the sole
// external handle and is never reused.
type Job struct {
	ID           string     `json:"jobId"`
	DocumentID   string     `json:"documentId"`
	DocumentURI  string     `json:"documentUri"`
	DocumentType string     `json:"documentType"`
	PatientID    string     `json:"patientId"`
	ReferralID   string     `json:"referralId"`
	Priority     string     `json:"priority"`
	CallbackURL  string     `json:"callbackUrl,omitempty"`
	Status       JobStatus  `json:"status"`
	Progress     *float64   `json:"progress,omitempty"`
	Message      string     `json:"message,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// JobResult holds the persisted pipeline output for a completed job.
type JobResult struct {
	JobID           string             `json:"jobId"`
	Entities        []ExtractedEntity  `json:"entities"`
	Domains         []DomainSuggestion `json:"domains"`
	ConfidenceScore float64            `json:"confidenceScore"`
}
