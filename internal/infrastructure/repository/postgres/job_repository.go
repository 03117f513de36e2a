package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	document_uri TEXT NOT NULL,
	document_type TEXT NOT NULL,
	patient_id TEXT NOT NULL,
	referral_id TEXT NOT NULL,
	priority TEXT NOT NULL DEFAULT 'normal',
	callback_url TEXT,
	status TEXT NOT NULL,
	progress DOUBLE PRECISION,
	message TEXT,
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS job_results (
	job_id TEXT PRIMARY KEY REFERENCES jobs(id),
	entities JSONB NOT NULL DEFAULT '[]'::jsonb,
	domains JSONB NOT NULL DEFAULT '[]'::jsonb,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_referral_id ON jobs(referral_id);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO jobs (
	id, document_id, document_uri, document_type, patient_id, referral_id, priority, callback_url,
	status, progress, message, started_at, completed_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		job.ID, job.DocumentID, job.DocumentURI, job.DocumentType, job.PatientID, job.ReferralID,
		job.Priority, job.CallbackURL, string(job.Status), job.Progress, job.Message,
		job.StartedAt, job.CompletedAt, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, document_uri, document_type, patient_id, referral_id, priority, callback_url,
	status, progress, message, started_at, completed_at, created_at, updated_at
FROM jobs
WHERE id = $1
`, jobID)

	var job domain.Job
	var status string
	var callbackURL, message sql.NullString

	err := row.Scan(
		&job.ID, &job.DocumentID, &job.DocumentURI, &job.DocumentType, &job.PatientID, &job.ReferralID,
		&job.Priority, &callbackURL, &status, &job.Progress, &message,
		&job.StartedAt, &job.CompletedAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", jobID))
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	job.CallbackURL = callbackURL.String
	job.Message = message.String
	return &job, nil
}

// UpdateStatus guards the forward-only lifecycle under a row lock and stamps
// lifecycle timestamps alongside the transition: started_at is set once on
// the first PROCESSING update, completed_at on terminal updates; progress is
// 1.0 on COMPLETED and NULL on FAILED.
func (r *JobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, message string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, jobID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrJobNotFound, "update job status", fmt.Errorf("id=%s", jobID))
	}
	if err != nil {
		return fmt.Errorf("lock job row: %w", err)
	}

	// A repeated PROCESSING stamp happens on queue redelivery after a worker
	// crash; terminal states are never restamped.
	from := domain.JobStatus(current)
	if !from.CanTransitionTo(status) && !(from == status && !from.Terminal()) {
		return domain.WrapError(domain.ErrInvalidTransition, "update job status",
			fmt.Errorf("%s to %s", from, status))
	}

	_, err = tx.ExecContext(ctx, `
UPDATE jobs
SET status = $2,
	message = $3,
	updated_at = $4,
	started_at = CASE WHEN $2 = 'PROCESSING' THEN COALESCE(started_at, $4) ELSE started_at END,
	completed_at = CASE WHEN $2 IN ('COMPLETED','FAILED') THEN $4 ELSE completed_at END,
	progress = CASE
		WHEN $2 = 'COMPLETED' THEN 1.0
		WHEN $2 = 'FAILED' THEN NULL
		WHEN $2 = 'PROCESSING' THEN COALESCE(progress, 0.0)
		ELSE progress
	END
WHERE id = $1
`, jobID, string(status), message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	return nil
}

func (r *JobRepository) SaveResult(ctx context.Context, result *domain.JobResult) error {
	entitiesJSON, err := json.Marshal(result.Entities)
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}
	domainsJSON, err := json.Marshal(result.Domains)
	if err != nil {
		return fmt.Errorf("marshal domains: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO job_results (job_id, entities, domains, confidence_score, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (job_id) DO UPDATE
SET entities = EXCLUDED.entities,
	domains = EXCLUDED.domains,
	confidence_score = EXCLUDED.confidence_score
`, result.JobID, entitiesJSON, domainsJSON, result.ConfidenceScore, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save job result: %w", err)
	}
	return nil
}

func (r *JobRepository) GetResult(ctx context.Context, jobID string) (*domain.JobResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT job_id, entities, domains, confidence_score
FROM job_results
WHERE job_id = $1
`, jobID)

	var result domain.JobResult
	var entitiesRaw, domainsRaw []byte

	err := row.Scan(&result.JobID, &entitiesRaw, &domainsRaw, &result.ConfidenceScore)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotReady, "get job result", fmt.Errorf("id=%s", jobID))
		}
		return nil, fmt.Errorf("scan job result: %w", err)
	}

	if err := json.Unmarshal(entitiesRaw, &result.Entities); err != nil {
		return nil, fmt.Errorf("unmarshal entities: %w", err)
	}
	if err := json.Unmarshal(domainsRaw, &result.Domains); err != nil {
		return nil, fmt.Errorf("unmarshal domains: %w", err)
	}
	return &result, nil
}
