// Package chi exposes the ingestion and question answering pipelines over
// HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/contextforge/contextforge/internal/domain"
	healthuc "github.com/contextforge/contextforge/internal/usecase/health"
	queryuc "github.com/contextforge/contextforge/internal/usecase/query"
)

type errorCode string

const (
	codeBadRequest            errorCode = "bad_request"
	codeValidationFailed      errorCode = "validation_failed"
	codeUnprocessableDocument errorCode = "unprocessable_document"
	codeUpstreamError         errorCode = "upstream_error"
	codeInternalError         errorCode = "internal_error"
)

// Ingestor runs the document ingestion pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, docID, signedURL, filename string) (int, error)
}

// Answerer runs the question answering pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string, docIDs []string, bypassGate bool) (queryuc.Result, error)
}

// HealthChecker aggregates component health for the health endpoint.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server is the HTTP API surface.
type Server struct {
	ingest        Ingestor
	query         Answerer
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(ingest Ingestor, query Answerer, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		ingest: ingest,
		query:  query,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNoExtractableText, http.StatusUnprocessableEntity, codeUnprocessableDocument),
		sentinelHandler(domain.ErrEmptyDocument, http.StatusUnprocessableEntity, codeUnprocessableDocument),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusUnprocessableEntity, codeUnprocessableDocument),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrMalformedUpstreamResponse, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/ingest", s.IngestDocument)
	r.Post("/query", s.Query)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type ingestRequest struct {
	DocID     string `json:"doc_id"`
	SignedURL string `json:"signed_url"`
	Filename  string `json:"filename"`
}

type ingestResponse struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// IngestDocument handles POST /ingest.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.DocID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "doc_id is required")
		return
	}
	if req.SignedURL == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "signed_url is required")
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "filename is required")
		return
	}

	chunks, err := s.ingest.Ingest(r.Context(), req.DocID, req.SignedURL, req.Filename)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{Status: "indexed", Chunks: chunks})
}

type queryRequest struct {
	Question   string   `json:"question"`
	DocIDs     []string `json:"doc_ids,omitempty"`
	BypassGate bool     `json:"bypass_gate,omitempty"`
}

type queryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Question == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}

	result, err := s.query.Answer(r.Context(), req.Question, req.DocIDs, req.BypassGate)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Answer: result.Answer, Sources: result.Sources})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNoExtractableText,
		domain.ErrEmptyDocument,
		domain.ErrUnsupportedFormat,
		domain.ErrEmbeddingProviderError,
		domain.ErrMalformedUpstreamResponse,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
