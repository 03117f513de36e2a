package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
	"github.com/hgottschalk/calaim-assistant/internal/core/ports"
)

type stubSubmitter struct {
	job *domain.Job
	err error

	gotSubmit   *ports.SubmitRequest
	gotFilename string
	gotMime     string
	gotBody     []byte
}

func (s *stubSubmitter) Submit(_ context.Context, req ports.SubmitRequest) (*domain.Job, error) {
	s.gotSubmit = &req
	return s.job, s.err
}

func (s *stubSubmitter) Upload(_ context.Context, filename, mimeType string, body io.Reader, req ports.SubmitRequest) (*domain.Job, error) {
	s.gotSubmit = &req
	s.gotFilename = filename
	s.gotMime = mimeType
	s.gotBody, _ = io.ReadAll(body)
	return s.job, s.err
}

type stubReader struct {
	job       *domain.Job
	jobErr    error
	result    *domain.JobResult
	resultErr error
}

func (s *stubReader) GetStatus(context.Context, string) (*domain.Job, error) {
	return s.job, s.jobErr
}

func (s *stubReader) GetResults(context.Context, string) (*domain.JobResult, error) {
	return s.result, s.resultErr
}

type stubAnalyzer struct {
	entities []domain.ExtractedEntity
	err      error
	domains  []domain.DomainSuggestion
}

func (s *stubAnalyzer) RecognizeEntities(context.Context, string, *float64, bool) ([]domain.ExtractedEntity, error) {
	return s.entities, s.err
}

func (s *stubAnalyzer) MapDomains([]domain.ExtractedEntity) []domain.DomainSuggestion {
	return s.domains
}

func newTestRouter(submitter ports.JobSubmitter, reader ports.JobReader, analyzer ports.TextAnalyzer) http.Handler {
	return NewRouter(submitter, reader, analyzer, nil,
		slog.New(slog.DiscardHandler), "calaim-api", TrafficPolicy{}).Handler()
}

func completedJob() *domain.Job {
	return &domain.Job{
		ID:         "job-1",
		DocumentID: "doc-1",
		PatientID:  "patient-1",
		Status:     domain.StatusCompleted,
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := NewRouter(&stubSubmitter{}, &stubReader{}, &stubAnalyzer{}, nil,
		slog.New(slog.DiscardHandler), "calaim-api", TrafficPolicy{})
	router.Dependencies = map[string]string{"jobStore": "memory", "queue": "inproc"}
	handler := router.Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/health", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}

	var body struct {
		Status       string            `json:"status"`
		Service      string            `json:"service"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Service != "calaim-api" {
		t.Fatalf("unexpected health body: %+v", body)
	}
	if body.Dependencies["queue"] != "inproc" {
		t.Fatalf("expected dependency report, got %+v", body.Dependencies)
	}
}

func TestProcessDocumentAccepted(t *testing.T) {
	pending := &domain.Job{ID: "job-1", Status: domain.StatusPending}
	submitter := &stubSubmitter{job: pending}
	handler := newTestRouter(submitter, &stubReader{}, &stubAnalyzer{})

	payload := `{
		"documentId": "doc-1",
		"documentUri": "file:///docs/referral.pdf",
		"documentType": "application/pdf",
		"patientId": "patient-1",
		"callbackUrl": "https://example.com/cb"
	}`
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/documents/process", strings.NewReader(payload)))

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if submitter.gotSubmit == nil || submitter.gotSubmit.DocumentID != "doc-1" {
		t.Fatalf("submit request not forwarded: %+v", submitter.gotSubmit)
	}
	if submitter.gotSubmit.CallbackURL != "https://example.com/cb" {
		t.Fatalf("callback url lost: %+v", submitter.gotSubmit)
	}

	var job domain.Job
	if err := json.NewDecoder(res.Body).Decode(&job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.ID != "job-1" || job.Status != domain.StatusPending {
		t.Fatalf("unexpected job in response: %+v", job)
	}
}

func TestProcessDocumentValidationMapsTo400(t *testing.T) {
	submitter := &stubSubmitter{err: domain.WrapError(domain.ErrValidation, "submit", errors.New("missing required fields: patientId"))}
	handler := newTestRouter(submitter, &stubReader{}, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/documents/process", strings.NewReader(`{}`)))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestProcessDocumentInvalidJSON(t *testing.T) {
	handler := newTestRouter(&stubSubmitter{}, &stubReader{}, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/documents/process", strings.NewReader("{not json")))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestProcessDocumentMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(&stubSubmitter{}, &stubReader{}, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/process", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestProcessDocumentTemporaryMapsTo503(t *testing.T) {
	submitter := &stubSubmitter{err: domain.WrapError(domain.ErrTemporary, "publish", errors.New("broker down"))}
	handler := newTestRouter(submitter, &stubReader{}, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/documents/process", strings.NewReader(`{}`)))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestUploadDocument(t *testing.T) {
	pending := &domain.Job{ID: "job-1", Status: domain.StatusPending}
	submitter := &stubSubmitter{job: pending}
	handler := newTestRouter(submitter, &stubReader{}, &stubAnalyzer{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "referral.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.WriteField("patientId", "patient-1")
	_ = mw.WriteField("referralId", "referral-1")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if submitter.gotFilename != "referral.pdf" {
		t.Fatalf("filename not forwarded: %q", submitter.gotFilename)
	}
	if string(submitter.gotBody) != "%PDF-1.4" {
		t.Fatalf("file body not forwarded: %q", submitter.gotBody)
	}
	if submitter.gotSubmit.PatientID != "patient-1" || submitter.gotSubmit.ReferralID != "referral-1" {
		t.Fatalf("form fields not forwarded: %+v", submitter.gotSubmit)
	}
}

func TestUploadDocumentRequiresFile(t *testing.T) {
	handler := newTestRouter(&stubSubmitter{}, &stubReader{}, &stubAnalyzer{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/upload", strings.NewReader("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetJobStatus(t *testing.T) {
	reader := &stubReader{job: completedJob()}
	handler := newTestRouter(&stubSubmitter{}, reader, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var job domain.Job
	if err := json.NewDecoder(res.Body).Decode(&job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.ID != "job-1" || job.Status != domain.StatusCompleted {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestGetJobStatusNotFound(t *testing.T) {
	reader := &stubReader{jobErr: domain.ErrJobNotFound}
	handler := newTestRouter(&stubSubmitter{}, reader, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetJobResults(t *testing.T) {
	reader := &stubReader{
		job: completedJob(),
		result: &domain.JobResult{
			JobID:           "job-1",
			ConfidenceScore: 0.91,
			Entities: []domain.ExtractedEntity{
				{Type: domain.EntityDiagnosis, Text: "MDD", Confidence: 0.92},
			},
		},
	}
	handler := newTestRouter(&stubSubmitter{}, reader, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1/results", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var result domain.JobResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ConfidenceScore != 0.91 || len(result.Entities) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestGetJobResultsNotReadyMapsTo409(t *testing.T) {
	reader := &stubReader{
		job:       &domain.Job{ID: "job-1", Status: domain.StatusProcessing},
		resultErr: domain.ErrNotReady,
	}
	handler := newTestRouter(&stubSubmitter{}, reader, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1/results", nil))
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestJobRoutesRejectEmptyID(t *testing.T) {
	handler := newTestRouter(&stubSubmitter{}, &stubReader{}, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/jobs/", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestJobRoutesUnknownSuffix(t *testing.T) {
	handler := newTestRouter(&stubSubmitter{}, &stubReader{}, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1/logs", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestExtractEntities(t *testing.T) {
	analyzer := &stubAnalyzer{entities: []domain.ExtractedEntity{
		{Type: domain.EntityDiagnosis, Text: "Major Depressive Disorder", Confidence: 0.92},
	}}
	handler := newTestRouter(&stubSubmitter{}, &stubReader{}, analyzer)

	payload := `{"text": "Patient reports feeling depressed.", "confidenceThreshold": 0.5}`
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/nlp/extract-entities", strings.NewReader(payload)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var body struct {
		Entities []domain.ExtractedEntity `json:"entities"`
		Count    int                      `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Entities[0].Text != "Major Depressive Disorder" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestExtractEntitiesEmptyTextMapsTo400(t *testing.T) {
	analyzer := &stubAnalyzer{err: domain.WrapError(domain.ErrValidation, "recognize", errors.New("text must not be empty"))}
	handler := newTestRouter(&stubSubmitter{}, &stubReader{}, analyzer)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/nlp/extract-entities", strings.NewReader(`{"text": ""}`)))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestMapDomains(t *testing.T) {
	analyzer := &stubAnalyzer{domains: []domain.DomainSuggestion{
		{DomainType: domain.DomainPresentingProblem, Confidence: 0.92},
	}}
	handler := newTestRouter(&stubSubmitter{}, &stubReader{}, analyzer)

	payload := `{"entities": [{"type": "Diagnosis", "text": "MDD", "confidence": 0.92}]}`
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/nlp/map-domains", strings.NewReader(payload)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var body struct {
		Domains []domain.DomainSuggestion `json:"domains"`
		Count   int                       `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Domains[0].DomainType != domain.DomainPresentingProblem {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestUnhandledErrorMapsTo500(t *testing.T) {
	reader := &stubReader{jobErr: errors.New("connection reset")}
	handler := newTestRouter(&stubSubmitter{}, reader, &stubAnalyzer{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil))
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}
