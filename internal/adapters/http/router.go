// Package httpadapter exposes the document processing API: job intake,
// status and results, the synchronous NLP endpoints and the results export.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
	"github.com/hgottschalk/calaim-assistant/internal/core/ports"
	"github.com/hgottschalk/calaim-assistant/internal/observability/metrics"
)

const maxUploadBytes = 32 << 20

type Router struct {
	submitter ports.JobSubmitter
	reader    ports.JobReader
	analyzer  ports.TextAnalyzer
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger

	service string
	traffic TrafficPolicy

	// Dependencies is reported verbatim by the health endpoint; keys name a
	// backing component, values its configured driver or mode.
	Dependencies map[string]string
}

// TrafficPolicy bounds the API surface. Zero values disable the
// corresponding gate.
type TrafficPolicy struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	OverloadWait   time.Duration
}

func NewRouter(
	submitter ports.JobSubmitter,
	reader ports.JobReader,
	analyzer ports.TextAnalyzer,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	service string,
	traffic TrafficPolicy,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		submitter: submitter,
		reader:    reader,
		analyzer:  analyzer,
		metrics:   httpMetrics,
		logger:    logger,
		service:   service,
		traffic:   traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/v1/documents/process", rt.processDocument)
	mux.HandleFunc("/v1/documents/upload", rt.uploadDocument)
	mux.HandleFunc("/v1/jobs/", rt.jobRoutes)
	mux.HandleFunc("/v1/nlp/extract-entities", rt.extractEntities)
	mux.HandleFunc("/v1/nlp/map-domains", rt.mapDomains)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	if rt.traffic.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.traffic.MaxConcurrent, rt.traffic.OverloadWait)
	}
	if rt.traffic.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	}
	handler = rt.accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"service": rt.service,
	}
	if len(rt.Dependencies) > 0 {
		resp["dependencies"] = rt.Dependencies
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		DocumentID   string `json:"documentId"`
		DocumentURI  string `json:"documentUri"`
		DocumentType string `json:"documentType"`
		PatientID    string `json:"patientId"`
		ReferralID   string `json:"referralId"`
		Priority     string `json:"priority"`
		CallbackURL  string `json:"callbackUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	job, err := rt.submitter.Submit(r.Context(), ports.SubmitRequest{
		DocumentID:   req.DocumentID,
		DocumentURI:  req.DocumentURI,
		DocumentType: req.DocumentType,
		PatientID:    req.PatientID,
		ReferralID:   req.ReferralID,
		Priority:     req.Priority,
		CallbackURL:  req.CallbackURL,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordJobSubmitted(rt.service, "process")
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	job, err := rt.submitter.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
		ports.SubmitRequest{
			DocumentID:  r.FormValue("documentId"),
			PatientID:   r.FormValue("patientId"),
			ReferralID:  r.FormValue("referralId"),
			Priority:    r.FormValue("priority"),
			CallbackURL: r.FormValue("callbackUrl"),
		},
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordJobSubmitted(rt.service, "upload")
	}
	writeJSON(w, http.StatusAccepted, job)
}

// jobRoutes dispatches /v1/jobs/{id}, /v1/jobs/{id}/results and
// /v1/jobs/{id}/results/export.
func (rt *Router) jobRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	jobID, suffix, _ := strings.Cut(rest, "/")
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	switch suffix {
	case "":
		rt.getJobStatus(w, r, jobID)
	case "results":
		rt.getJobResults(w, r, jobID)
	case "results/export":
		rt.exportJobResults(w, r, jobID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) getJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := rt.reader.GetStatus(r.Context(), jobID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) getJobResults(w http.ResponseWriter, r *http.Request, jobID string) {
	result, err := rt.reader.GetResults(r.Context(), jobID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) extractEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Text                string   `json:"text"`
		ConfidenceThreshold *float64 `json:"confidenceThreshold"`
		IncludeUMLS         bool     `json:"includeUmls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	entities, err := rt.analyzer.RecognizeEntities(r.Context(), req.Text, req.ConfidenceThreshold, req.IncludeUMLS)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordAnalysis(rt.service, "extract-entities", len(entities))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": entities,
		"count":    len(entities),
	})
}

func (rt *Router) mapDomains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Entities []domain.ExtractedEntity `json:"entities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	domains := rt.analyzer.MapDomains(req.Entities)
	if rt.metrics != nil {
		rt.metrics.RecordAnalysis(rt.service, "map-domains", len(req.Entities))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"domains": domains,
		"count":   len(domains),
	})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
