// Package chi exposes the engine over HTTP: resource CRUD and list
// endpoints per kind, keyword search, health, and metrics.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ViewWay/flow-sub000/internal/extension"
	"github.com/ViewWay/flow-sub000/internal/index"
	"github.com/ViewWay/flow-sub000/internal/metrics"
	"github.com/ViewWay/flow-sub000/internal/search"
	"github.com/ViewWay/flow-sub000/internal/store"
)

// Error codes returned to clients.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeNotFound          = "not_found"
	codeUnknownKind       = "unknown_kind"
	codeUnknownIndex      = "unknown_index"
	codeTypeMismatch      = "index_type_mismatch"
	codeInvalidIndex      = "invalid_index"
	codeUniqueViolation   = "unique_violation"
	codeNotRegistered     = "type_not_registered"
	codeSearchFailed      = "search_failed"
	codeSearchUnavailable = "search_unavailable"
	codeInternalError     = "internal_error"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Options carries the request-shaping limits from configuration.
type Options struct {
	DefaultPageSize    int
	MaxPageSize        int
	DefaultSearchLimit int
	MaxSearchLimit     int
}

// Server is the HTTP API over the resource client and the full-text
// engine. fts may be nil when search is disabled.
type Server struct {
	client        *store.Client
	fts           search.Engine
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(client *store.Client, fts search.Engine, opts Options, logger *zap.Logger) *Server {
	s := &Server{
		client: client,
		fts:    fts,
		opts:   opts,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(store.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(store.ErrUnknownKind, http.StatusNotFound, codeUnknownKind),
		sentinelHandler(index.ErrTypeNotRegistered, http.StatusNotFound, codeNotRegistered),
		sentinelHandler(index.ErrUnknownIndex, http.StatusBadRequest, codeUnknownIndex),
		sentinelHandler(index.ErrIndexTypeMismatch, http.StatusBadRequest, codeTypeMismatch),
		sentinelHandler(index.ErrInvalidIndex, http.StatusBadRequest, codeInvalidIndex),
		sentinelHandler(index.ErrUniqueViolation, http.StatusConflict, codeUniqueViolation),
		sentinelHandler(search.ErrSearchFailed, http.StatusInternalServerError, codeSearchFailed),
	}
	return s
}

// Routes registers every endpoint on a router. Middleware is the
// caller's concern; main assembles the chain.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.SearchDocuments)
		r.Route("/{kindTag}", func(r chi.Router) {
			r.Get("/", s.ListResources)
			r.Post("/query", s.QueryResources)
			r.Get("/{name}", s.GetResource)
			r.Put("/{name}", s.SaveResource)
			r.Delete("/{name}", s.DeleteResource)
		})
	})
}

// SearchDocuments handles POST /api/v1/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	if s.fts == nil {
		writeError(w, http.StatusNotImplemented, codeSearchUnavailable, "full-text search is disabled")
		return
	}

	var opt search.Option
	if err := json.NewDecoder(r.Body).Decode(&opt); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if opt.Keyword == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "keyword is required")
		return
	}
	if opt.Limit <= 0 {
		opt.Limit = s.opts.DefaultSearchLimit
	}
	if opt.Limit > s.opts.MaxSearchLimit {
		opt.Limit = s.opts.MaxSearchLimit
	}

	start := time.Now()
	result, err := s.fts.Search(r.Context(), opt)
	metrics.SearchRequestDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

// ListResources handles GET /api/v1/{kindTag}.
func (s *Server) ListResources(w http.ResponseWriter, r *http.Request) {
	kindTag := chi.URLParam(r, "kindTag")
	opts := extension.ListOptions{
		LabelSelector: r.URL.Query().Get("labelSelector"),
		FieldSelector: r.URL.Query().Get("fieldSelector"),
		Page:          queryInt(r, "page", 1),
		Size:          queryInt(r, "size", s.opts.DefaultPageSize),
		Sort:          r.URL.Query()["sort"],
	}
	s.list(w, r, kindTag, opts)
}

// QueryResources handles POST /api/v1/{kindTag}/query with a full
// condition tree in the body.
func (s *Server) QueryResources(w http.ResponseWriter, r *http.Request) {
	kindTag := chi.URLParam(r, "kindTag")
	var opts extension.ListOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Size <= 0 {
		opts.Size = s.opts.DefaultPageSize
	}
	s.list(w, r, kindTag, opts)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, kindTag string, opts extension.ListOptions) {
	if opts.Size > s.opts.MaxPageSize {
		opts.Size = s.opts.MaxPageSize
	}
	start := time.Now()
	result, err := s.client.List(r.Context(), kindTag, opts)
	metrics.QueryDuration.WithLabelValues(kindTag).Observe(time.Since(start).Seconds())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetResource handles GET /api/v1/{kindTag}/{name}.
func (s *Server) GetResource(w http.ResponseWriter, r *http.Request) {
	kindTag := chi.URLParam(r, "kindTag")
	name := chi.URLParam(r, "name")

	ext, err := s.client.Get(r.Context(), kindTag, name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ext)
}

// SaveResource handles PUT /api/v1/{kindTag}/{name}.
func (s *Server) SaveResource(w http.ResponseWriter, r *http.Request) {
	kindTag := chi.URLParam(r, "kindTag")
	name := chi.URLParam(r, "name")

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	ext, err := s.client.Decode(kindTag, body)
	if err != nil {
		if errors.Is(err, store.ErrUnknownKind) {
			s.handleDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	meta := ext.Metadata()
	if meta.Name == "" {
		meta.Name = name
	}
	if meta.Name != name {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"metadata.name does not match the resource path")
		return
	}

	_, existed := s.existing(r, kindTag, name)
	if err := s.client.Save(r.Context(), ext); err != nil {
		metrics.IndexOperationsTotal.WithLabelValues(kindTag, "save", "error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.IndexOperationsTotal.WithLabelValues(kindTag, "save", "ok").Inc()

	status := http.StatusOK
	if !existed {
		status = http.StatusCreated
	}
	writeJSON(w, status, ext)
}

func (s *Server) existing(r *http.Request, kindTag, name string) (extension.Extension, bool) {
	ext, err := s.client.Get(r.Context(), kindTag, name)
	if err != nil {
		return nil, false
	}
	return ext, true
}

// DeleteResource handles DELETE /api/v1/{kindTag}/{name}.
func (s *Server) DeleteResource(w http.ResponseWriter, r *http.Request) {
	kindTag := chi.URLParam(r, "kindTag")
	name := chi.URLParam(r, "name")

	if err := s.client.Delete(r.Context(), kindTag, name); err != nil {
		metrics.IndexOperationsTotal.WithLabelValues(kindTag, "delete", "error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.IndexOperationsTotal.WithLabelValues(kindTag, "delete", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		store.ErrNotFound,
		store.ErrUnknownKind,
		index.ErrTypeNotRegistered,
		index.ErrUnknownIndex,
		index.ErrIndexTypeMismatch,
		index.ErrInvalidIndex,
		index.ErrUniqueViolation,
		search.ErrSearchFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
