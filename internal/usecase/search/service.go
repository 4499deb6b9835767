// Package search assembles catalog-scoped search requests, runs them and maps the results.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gally-search/gally/internal/db"
	"github.com/gally-search/gally/internal/domain"
	domfacet "github.com/gally-search/gally/internal/domain/facet"
	"github.com/gally-search/gally/internal/domain/mapping"
	"github.com/gally-search/gally/internal/domain/search/query"
	"github.com/gally-search/gally/internal/domain/search/request"
	"github.com/gally-search/gally/internal/domain/search/result"
	"github.com/gally-search/gally/internal/domain/search/sorting"
	"github.com/gally-search/gally/internal/logger"
	"github.com/gally-search/gally/internal/metrics"
	"github.com/gally-search/gally/internal/usecase/facet"
	"github.com/gally-search/gally/internal/usecase/filter"
	"github.com/gally-search/gally/internal/usecase/sortorder"
)

// Full-text query settings.
const (
	multiMatchType     = "best_fields"
	multiMatchOperator = "and"
)

// Service assembles and runs searches.
type Service struct {
	mappings    MappingResolver
	catalogs    CatalogResolver
	categories  CategoryChecker
	sorts       SortBuilder
	facets      FacetPlanner
	engine      Engine
	indexPrefix string
}

// New creates a search service.
func New(
	mappings MappingResolver, catalogs CatalogResolver, categories CategoryChecker,
	sorts SortBuilder, facets FacetPlanner, engine Engine,
) *Service {
	return &Service{
		mappings:   mappings,
		catalogs:   catalogs,
		categories: categories,
		sorts:      sorts,
		facets:     facets,
		engine:     engine,
	}
}

// WithIndexPrefix sets the prefix of index aliases.
func (s *Service) WithIndexPrefix(prefix string) *Service {
	s.indexPrefix = prefix
	return s
}

// Assemble validates req and builds the engine request. It never calls the engine.
func (s *Service) Assemble(ctx context.Context, req *request.Context) (NativeRequest, error) {
	m, q, err := s.scope(ctx, req)
	if err != nil {
		return NativeRequest{}, err
	}

	orders, err := s.sorts.Build(m, sortorder.Scope{
		PriceGroupID:      req.PriceGroupID(),
		ReferenceLocation: req.ReferenceLocation(),
	}, req.Sort())
	if err != nil {
		return NativeRequest{}, err
	}

	var entries []facet.Entry
	if req.WithFacets() {
		if entries, err = s.facets.Plan(ctx, m, categoryPtr(req), req.PriceGroupID()); err != nil {
			return NativeRequest{}, err
		}
	}

	q.Sort = orders
	q.Facets = entries
	q.From = req.From()
	q.Size = req.PageSize()
	q.Page = req.Page()
	return q, nil
}

// scope resolves catalog, mapping and category, and compiles the query of req.
func (s *Service) scope(ctx context.Context, req *request.Context) (*mapping.Mapping, NativeRequest, error) {
	cat, err := s.catalogs.Resolve(ctx, req.Catalog())
	if err != nil {
		return nil, NativeRequest{}, err
	}
	m, err := s.mappings.ResolveMapping(ctx, req.EntityType())
	if err != nil {
		return nil, NativeRequest{}, err
	}
	if id := req.CategoryID(); id != "" {
		ok, err := s.categories.Exists(ctx, id)
		if err != nil {
			return nil, NativeRequest{}, fmt.Errorf("check category %s: %w", id, err)
		}
		if !ok {
			return nil, NativeRequest{}, &domain.CategoryNotFoundError{CategoryID: id}
		}
	}

	userFilter, err := filter.Build(m, filter.Scope{PriceGroupID: req.PriceGroupID()}, req.Filters())
	if err != nil {
		return nil, NativeRequest{}, err
	}

	var filters []query.Node
	if base := categoryFilter(m, req.CategoryID()); base != nil {
		filters = append(filters, base)
	}
	if userFilter != nil {
		filters = append(filters, userFilter)
	}

	b := query.Bool{Must: []query.Node{textQuery(m, req.Text())}}
	if f := query.And(filters...); f != nil {
		b.Filter = []query.Node{f}
	}
	return m, NativeRequest{
		Index: cat.IndexAlias(s.indexPrefix, req.EntityType()),
		Query: b,
	}, nil
}

// Search assembles req, runs it and maps the response into a result page.
func (s *Service) Search(ctx context.Context, req *request.Context) (*result.Page, error) {
	native, err := s.Assemble(ctx, req)
	if err != nil {
		countRequest(req.EntityType(), err)
		return nil, err
	}

	resp, err := s.run(ctx, req.EntityType(), native)
	countRequest(req.EntityType(), err)
	if err != nil {
		return nil, err
	}

	items := make([]result.Item, len(resp.Hits.Hits))
	for i, h := range resp.Hits.Hits {
		items[i] = result.New(h.ID, h.ScoreValue(), h.Source, h.Sort)
	}
	total := resp.Hits.Total.Value
	return &result.Page{
		Items:        items,
		Pagination:   result.NewPagination(total, native.Size, native.Page),
		SortInfo:     result.SortInfo{Current: sorting.CurrentSort(native.Sort)},
		Aggregations: facet.Read(native.Facets, resp.Aggregations, total),
	}, nil
}

// ViewMoreOptions returns every option of one facet field for req. No hits are fetched.
func (s *Service) ViewMoreOptions(ctx context.Context, req *request.Context, field string) (domfacet.Facet, error) {
	m, native, err := s.scope(ctx, req)
	if err != nil {
		return domfacet.Facet{}, err
	}
	entry, err := s.facets.ViewMore(ctx, m, field, categoryPtr(req), req.PriceGroupID())
	if err != nil {
		return domfacet.Facet{}, err
	}
	if entry.Empty {
		return domfacet.Facet{
			Field:   entry.Aggregation.Name,
			Label:   entry.Configuration.Field().Label(),
			Type:    entry.Aggregation.Type,
			Options: []domfacet.Option{},
		}, nil
	}
	native.Facets = []facet.Entry{entry}

	resp, err := s.run(ctx, req.EntityType(), native)
	if err != nil {
		return domfacet.Facet{}, err
	}
	raw, _ := resp.Aggregations[entry.Aggregation.Name].(map[string]any)
	if raw == nil {
		raw = map[string]any{}
	}
	f, _ := domfacet.Read(entry.Aggregation, entry.Configuration, raw, resp.Hits.Total.Value)
	return f, nil
}

func (s *Service) run(ctx context.Context, entityType string, native NativeRequest) (*db.SearchResponse, error) {
	body, err := native.Body()
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("search request",
		zap.String("index", native.Index),
		zap.ByteString("body", body),
	)

	start := time.Now()
	resp, err := s.engine.Search(ctx, native.Index, body)
	metrics.EngineRequestDuration.WithLabelValues(entityType).Observe(time.Since(start).Seconds())
	if err != nil {
		errType := "engine"
		if errors.Is(err, db.ErrIndexNotFound) {
			errType = "index_not_found"
		}
		metrics.EngineErrorsTotal.WithLabelValues(entityType, errType).Inc()
		return nil, fmt.Errorf("search %s: %w", native.Index, err)
	}
	return resp, nil
}

// textQuery matches every document when text is empty, and none when m has no
// searchable field.
func textQuery(m *mapping.Mapping, text string) query.Node {
	if text == "" {
		return query.MatchAll{}
	}
	searchable := m.SearchableFields()
	if len(searchable) == 0 {
		return query.Bool{MustNot: []query.Node{query.MatchAll{}}}
	}
	fields := make([]string, len(searchable))
	for i, f := range searchable {
		fields[i] = f.Code() + "^" + strconv.Itoa(f.Weight())
	}
	return query.MultiMatch{
		Query:    text,
		Fields:   fields,
		Type:     multiMatchType,
		Operator: multiMatchOperator,
	}
}

// categoryFilter restricts results to the current category through the first category field of m.
func categoryFilter(m *mapping.Mapping, categoryID string) query.Node {
	if categoryID == "" {
		return nil
	}
	fields := m.FieldsOfType(mapping.Category)
	if len(fields) == 0 {
		return nil
	}
	f := fields[0]
	var q query.Node = query.Term{Field: f.ExactPath(), Value: categoryID}
	if f.IsNested() {
		q = query.Nested{Path: f.NestedPath(), Query: q}
	}
	return q
}

func categoryPtr(req *request.Context) *string {
	if id := req.CategoryID(); id != "" {
		return &id
	}
	return nil
}

func countRequest(entityType string, err error) {
	status := "ok"
	switch {
	case err == nil:
	case isClientError(err):
		status = "invalid"
	default:
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(entityType, status).Inc()
}

func isClientError(err error) bool {
	for _, target := range []error{
		domain.ErrUnknownEntity, domain.ErrMissingLocalizedCatalog, domain.ErrCategoryNotFound,
		domain.ErrInvalidFilterField, domain.ErrInvalidSortField, domain.ErrInvalidOperatorCombination,
		domain.ErrInvalidDateFormat, domain.ErrMultiSortNotAllowed, domain.ErrInvalidRequest,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
