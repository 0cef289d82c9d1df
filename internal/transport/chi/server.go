// Package chi implements the HTTP API over the chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/toolscout/toolscout/internal/domain"
	healthuc "github.com/toolscout/toolscout/internal/usecase/health"
	historyuc "github.com/toolscout/toolscout/internal/usecase/history"
	searchuc "github.com/toolscout/toolscout/internal/usecase/search"
	tooluc "github.com/toolscout/toolscout/internal/usecase/tool"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the tool catalog API.
type Server struct {
	tools         *tooluc.Service
	search        *searchuc.Service
	history       *historyuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	tools *tooluc.Service,
	search *searchuc.Service,
	history *historyuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		tools:   tools,
		search:  search,
		history: history,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		indexSyncHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbedding, http.StatusBadGateway, codeEmbeddingError),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Routes mounts all API routes onto the router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tools", func(r chi.Router) {
			r.Post("/", s.CreateTool)
			r.Get("/", s.ListTools)
			r.Get("/{id}", s.GetTool)
			r.Patch("/{id}", s.UpdateTool)
			r.Delete("/{id}", s.DeleteTool)
			r.Post("/{id}/reembed", s.ReembedTool)
		})
		r.Post("/index/purge-orphans", s.PurgeOrphans)
		r.Post("/search", s.SearchTools)
		r.Get("/search/history", s.ListSearchHistory)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// CreateTool handles POST /api/v1/tools.
func (s *Server) CreateTool(w http.ResponseWriter, r *http.Request) {
	var req createToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	created, err := s.tools.Create(ctx, fieldsFromRequest(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	w.Header().Set("Location", "/api/v1/tools/"+created.ID)
	writeJSON(w, http.StatusCreated, toolToResponse(created))
}

// GetTool handles GET /api/v1/tools/{id}.
func (s *Server) GetTool(w http.ResponseWriter, r *http.Request) {
	t, err := s.tools.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toolToResponse(t))
}

// ListTools handles GET /api/v1/tools.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)

	tools, err := s.tools.List(r.Context(), offset, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]toolResponse, len(tools))
	for i, t := range tools {
		items[i] = toolToResponse(t)
	}

	writeJSON(w, http.StatusOK, toolListResponse{
		Items:  items,
		Offset: offset,
		Limit:  limit,
	})
}

// UpdateTool handles PATCH /api/v1/tools/{id}.
func (s *Server) UpdateTool(w http.ResponseWriter, r *http.Request) {
	var req patchToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	updated, err := s.tools.Update(ctx, chi.URLParam(r, "id"), patchFromRequest(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, toolToResponse(updated))
}

// DeleteTool handles DELETE /api/v1/tools/{id}.
func (s *Server) DeleteTool(w http.ResponseWriter, r *http.Request) {
	if err := s.tools.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReembedTool handles POST /api/v1/tools/{id}/reembed.
func (s *Server) ReembedTool(w http.ResponseWriter, r *http.Request) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	if err := s.tools.Reembed(ctx, chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	w.WriteHeader(http.StatusNoContent)
}

// PurgeOrphans handles POST /api/v1/index/purge-orphans.
func (s *Server) PurgeOrphans(w http.ResponseWriter, r *http.Request) {
	purged, err := s.tools.PurgeOrphans(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, purgeOrphansResponse{Purged: purged})
}

// SearchTools handles POST /api/v1/search.
func (s *Server) SearchTools(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, req.Query, req.Limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i, res := range results {
		items[i] = searchResultItem{
			Tool:  toolToResponse(res.Tool),
			Score: res.Score,
		}
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse{
		Items: items,
		Total: len(items),
	})
}

// ListSearchHistory handles GET /api/v1/search/history.
func (s *Server) ListSearchHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)

	entries, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]historyEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = historyToResponse(e)
	}

	writeJSON(w, http.StatusOK, historyListResponse{Items: items})
}

// HealthCheck handles GET /health.
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

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
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
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrValidation,
		domain.ErrEmbedding,
		domain.ErrIndexSync,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
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

// indexSyncHandler handles ErrIndexSync with the affected tool ID so the
// client can repair via POST /tools/{id}/reembed.
func indexSyncHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrIndexSync) {
		return false
	}
	var syncErr *domain.IndexSyncError
	if errors.As(err, &syncErr) {
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Code:    codeIndexSyncFailed,
			Message: msg,
			ToolID:  syncErr.ToolID,
		})
		return true
	}
	writeError(w, http.StatusBadGateway, codeIndexSyncFailed, msg)
	return true
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
