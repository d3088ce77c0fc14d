// Package chi exposes the retrieval engine over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/candidate"
	"github.com/Wenjunyun123/Cognimark-Agent/internal/logger"
	healthuc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/health"
	indexeruc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/indexer"
	retrievaluc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/retrieval"
	statusuc "github.com/Wenjunyun123/Cognimark-Agent/internal/usecase/status"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server handles the search/rebuild/status endpoints. Handlers log via
// the request-scoped logger installed in the context by the middleware.
type Server struct {
	search        *retrievaluc.Service
	indexer       *indexeruc.Service
	status        *statusuc.Service
	health        *healthuc.Service
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *retrievaluc.Service,
	indexer *indexeruc.Service,
	status *statusuc.Service,
	health *healthuc.Service,
) *Server {
	s := &Server{
		search:  search,
		indexer: indexer,
		status:  status,
		health:  health,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnknownSource, http.StatusNotFound, "unknown_source"),
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable, "retrieval_unavailable"),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusServiceUnavailable, "model_unavailable"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusConflict, "vector_dim_mismatch"),
		sentinelHandler(domain.ErrRebuildFailed, http.StatusInternalServerError, "rebuild_failed"),
		sentinelHandler(domain.ErrInvalidSourceConfig, http.StatusBadRequest, "invalid_source_config"),
	}
	return s
}

// Routes mounts all endpoints on a router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/rebuild", s.handleRebuild)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// --- DTOs ---

type searchRequest struct {
	Query  string `json:"query"`
	Source string `json:"source,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

type searchItem struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	URL        string            `json:"url,omitempty"`
	Score      float64           `json:"score"`
	Source     string            `json:"source"`
	Strategies []string          `json:"strategies"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type searchMetadata struct {
	SourcesQueried  []string       `json:"sources_queried"`
	KeywordHits     map[string]int `json:"keyword_hits,omitempty"`
	VectorHits      map[string]int `json:"vector_hits,omitempty"`
	VectorDegraded  bool           `json:"vector_degraded"`
	DegradedSources []string       `json:"degraded_sources,omitempty"`
}

type searchResponse struct {
	Query    string         `json:"query"`
	Total    int            `json:"total"`
	Results  []searchItem   `json:"results"`
	Context  string         `json:"context"`
	Metadata searchMetadata `json:"metadata"`
}

type rebuildRequest struct {
	Source string `json:"source,omitempty"`
}

type rebuildResponse struct {
	SourcesRebuilt []string          `json:"sources_rebuilt"`
	RecordsIndexed map[string]int    `json:"records_indexed"`
	DurationsMs    map[string]int64  `json:"durations_ms"`
	Failures       map[string]string `json:"failures,omitempty"`
}

type statusSource struct {
	Name            string   `json:"name"`
	CollectionName  string   `json:"collection_name"`
	TriggerKeywords []string `json:"trigger_keywords"`
	IndexedCount    int      `json:"indexed_count"`
	LastBuiltAt     string   `json:"last_built_at,omitempty"` // RFC 3339, absent before first build
}

type statusResponse struct {
	Sources []statusSource `json:"sources"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Handlers ---

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	res, err := s.search.Search(r.Context(), req.Query, retrievaluc.Options{
		Source: req.Source,
		TopK:   req.TopK,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchToDTO(res))
}

// handleRebuild handles POST /api/v1/rebuild. An empty body or empty
// source rebuilds every registered source.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
			return
		}
	}

	report, err := s.indexer.Rebuild(r.Context(), req.Source)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rebuildToDTO(report))
}

// handleStatus handles GET /api/v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report := s.status.Report()

	resp := statusResponse{Sources: make([]statusSource, 0, len(report.Sources))}
	for _, src := range report.Sources {
		dto := statusSource{
			Name:            src.Name,
			CollectionName:  src.CollectionName,
			TriggerKeywords: src.TriggerKeywords,
			IndexedCount:    src.IndexedCount,
		}
		if !src.LastBuiltAt.IsZero() {
			dto.LastBuiltAt = src.LastBuiltAt.UTC().Format(time.RFC3339)
		}
		resp.Sources = append(resp.Sources, dto)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// --- Converters ---

func searchToDTO(res retrievaluc.Result) searchResponse {
	items := make([]searchItem, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, searchItem{
			ID:         it.RecordID,
			Title:      it.Title,
			URL:        it.URL,
			Score:      it.Score,
			Source:     it.Source,
			Strategies: strategiesToDTO(it.Strategies),
			Metadata:   it.Display,
		})
	}

	return searchResponse{
		Query:   res.Query,
		Total:   len(items),
		Results: items,
		Context: retrievaluc.FormatContext(res),
		Metadata: searchMetadata{
			SourcesQueried:  res.Metadata.SourcesQueried,
			KeywordHits:     res.Metadata.KeywordHits,
			VectorHits:      res.Metadata.VectorHits,
			VectorDegraded:  res.Metadata.VectorDegraded,
			DegradedSources: res.Metadata.DegradedSources,
		},
	}
}

func strategiesToDTO(strategies []candidate.Strategy) []string {
	out := make([]string, len(strategies))
	for i, st := range strategies {
		out[i] = string(st)
	}
	return out
}

func rebuildToDTO(report indexeruc.Report) rebuildResponse {
	durations := make(map[string]int64, len(report.Durations))
	for name, d := range report.Durations {
		durations[name] = d.Milliseconds()
	}
	resp := rebuildResponse{
		SourcesRebuilt: report.SourcesRebuilt,
		RecordsIndexed: report.RecordsIndexed,
		DurationsMs:    durations,
	}
	if len(report.Failures) > 0 {
		resp.Failures = report.Failures
	}
	if resp.SourcesRebuilt == nil {
		resp.SourcesRebuilt = []string{}
	}
	return resp
}

// --- Error mapping ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnknownSource,
		domain.ErrRetrievalUnavailable,
		domain.ErrModelUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrVectorDimMismatch,
		domain.ErrRebuildFailed,
		domain.ErrInvalidSourceConfig,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
