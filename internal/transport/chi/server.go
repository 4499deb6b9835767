// Package chi exposes the search API over HTTP.
package chi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/gally-search/gally/internal/domain"
	"github.com/gally-search/gally/internal/domain/search/request"
	"github.com/gally-search/gally/internal/logger"
	"github.com/gally-search/gally/internal/metrics"
	facetuc "github.com/gally-search/gally/internal/usecase/facet"
	healthuc "github.com/gally-search/gally/internal/usecase/health"
	mappinguc "github.com/gally-search/gally/internal/usecase/mapping"
	searchuc "github.com/gally-search/gally/internal/usecase/search"
	sortorderuc "github.com/gally-search/gally/internal/usecase/sortorder"
	"github.com/gally-search/gally/internal/version"
)

const maxBodyBytes = 1 << 20

// Server serves the search API.
type Server struct {
	search        *searchuc.Service
	mappings      *mappinguc.Service
	sorts         *sortorderuc.Service
	facets        *facetuc.Service
	health        *healthuc.Service
	limits        request.Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	mappings *mappinguc.Service,
	sorts *sortorderuc.Service,
	facets *facetuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:        search,
		mappings:      mappings,
		sorts:         sorts,
		facets:        facets,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithPageLimits sets the default and maximum page sizes.
func (s *Server) WithPageLimits(limits request.Limits) *Server {
	s.limits = limits
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1/{entityType}", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/search/view-more", s.ViewMoreOptions)
		r.Get("/mapping", s.GetMapping)
		r.Get("/sorting-options", s.ListSortingOptions)
		r.Get("/facet-configurations", s.ListFacetConfigurations)
		r.Put("/facet-configurations/{field}", s.SaveFacetConfiguration)
	})
}

// Search handles POST /api/v1/{entityType}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}

	ctx := logger.With(r.Context(), zap.String("catalog", req.Catalog()))
	page, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse(page))
}

// ViewMoreOptions handles POST /api/v1/{entityType}/search/view-more?field=.
func (s *Server) ViewMoreOptions(w http.ResponseWriter, r *http.Request) {
	var field string
	if err := runtime.BindQueryParameter("form", true, true, "field", r.URL.Query(), &field); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter field: "+err.Error())
		return
	}
	req, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}

	ctx := logger.With(r.Context(), zap.String("catalog", req.Catalog()), zap.String("facet", field))
	f, err := s.search.ViewMoreOptions(ctx, &req, field)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ViewMoreResponse{Field: f.Field, Options: f.Options})
}

// decodeSearch reads, validates and normalizes the search body. It writes the error reply on failure.
func (s *Server) decodeSearch(w http.ResponseWriter, r *http.Request) (request.Context, bool) {
	var body SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return request.Context{}, false
	}
	if err := validate.Struct(body); err != nil {
		s.handleDomainError(w, validationError(err))
		return request.Context{}, false
	}

	params, err := body.params(chi.URLParam(r, "entityType"))
	if err != nil {
		s.handleDomainError(w, err)
		return request.Context{}, false
	}
	req, err := request.New(params, s.limits)
	if err != nil {
		s.handleDomainError(w, err)
		return request.Context{}, false
	}
	return req, true
}

// GetMapping handles GET /api/v1/{entityType}/mapping.
func (s *Server) GetMapping(w http.ResponseWriter, r *http.Request) {
	m, err := s.mappings.ResolveMapping(r.Context(), chi.URLParam(r, "entityType"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mappingResponse(m))
}

// ListSortingOptions handles GET /api/v1/{entityType}/sorting-options.
func (s *Server) ListSortingOptions(w http.ResponseWriter, r *http.Request) {
	options, err := s.sorts.ListSortingOptions(r.Context(), chi.URLParam(r, "entityType"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

// ListFacetConfigurations handles GET /api/v1/{entityType}/facet-configurations?category=.
func (s *Server) ListFacetConfigurations(w http.ResponseWriter, r *http.Request) {
	category, ok := bindCategory(w, r)
	if !ok {
		return
	}
	configs, err := s.facets.ResolveFacets(r.Context(), chi.URLParam(r, "entityType"), category)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, facetConfigurationResponses(configs))
}

// SaveFacetConfiguration handles PUT /api/v1/{entityType}/facet-configurations/{field}?category=.
func (s *Server) SaveFacetConfiguration(w http.ResponseWriter, r *http.Request) {
	category, ok := bindCategory(w, r)
	if !ok {
		return
	}
	var body FacetConfigurationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(body); err != nil {
		s.handleDomainError(w, validationError(err))
		return
	}

	row := body.row(chi.URLParam(r, "entityType"), chi.URLParam(r, "field"), category)
	if err := s.facets.SaveConfiguration(r.Context(), row); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bindCategory(w http.ResponseWriter, r *http.Request) (*string, bool) {
	var category *string
	if err := runtime.BindQueryParameter("form", true, false, "category", r.URL.Query(), &category); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter category: "+err.Error())
		return nil, false
	}
	return category, true
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.String(),
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

// NotFound replies with a JSON 404 for unknown routes.
func (s *Server) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, domain.ErrNotFound.Error())
}
