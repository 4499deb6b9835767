// Package facet resolves facet configurations and turns them into engine aggregations.
package facet

import (
	"context"
	"fmt"
	"sort"

	"github.com/gally-search/gally/internal/domain"
	domfacet "github.com/gally-search/gally/internal/domain/facet"
	"github.com/gally-search/gally/internal/domain/mapping"
	"github.com/gally-search/gally/internal/domain/search/query"
	"github.com/gally-search/gally/internal/usecase/filter"
)

// DefaultViewMoreSize is the option count fetched by a "view more" request.
const DefaultViewMoreSize = 1000

// Entry pairs a visible facet configuration with its aggregation.
type Entry struct {
	Configuration domfacet.Configuration
	Aggregation   domfacet.Aggregation
	// Empty is set when no bucket can match, as for a category facet under a leaf category.
	Empty bool
}

// Service resolves facet configurations.
type Service struct {
	mappings     MappingResolver
	configs      ConfigStore
	categories   CategoryStore
	viewMoreSize int
}

// New creates a facet service.
func New(mappings MappingResolver, configs ConfigStore, categories CategoryStore) *Service {
	return &Service{
		mappings:     mappings,
		configs:      configs,
		categories:   categories,
		viewMoreSize: DefaultViewMoreSize,
	}
}

// WithViewMoreSize overrides the option count of "view more" requests.
func (s *Service) WithViewMoreSize(n int) *Service {
	if n > 0 {
		s.viewMoreSize = n
	}
	return s
}

// ResolveFacets returns the configuration of every aggregable field of entityType,
// merged from the category row, the default row and the built-ins, ordered by position.
func (s *Service) ResolveFacets(ctx context.Context, entityType string, categoryID *string) ([]domfacet.Configuration, error) {
	m, err := s.mappings.ResolveMapping(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, m, normalize(categoryID))
}

func (s *Service) resolve(ctx context.Context, m *mapping.Mapping, categoryID *string) ([]domfacet.Configuration, error) {
	if categoryID != nil {
		if err := s.checkCategory(ctx, *categoryID); err != nil {
			return nil, err
		}
	}

	defaults, err := s.rowsByField(ctx, m.EntityType(), nil)
	if err != nil {
		return nil, err
	}
	scoped := map[string]*domfacet.Row{}
	if categoryID != nil {
		if scoped, err = s.rowsByField(ctx, m.EntityType(), categoryID); err != nil {
			return nil, err
		}
	}

	fields := m.AggregableFields()
	out := make([]domfacet.Configuration, 0, len(fields))
	for _, f := range fields {
		out = append(out, domfacet.Resolve(f, categoryID, scoped[f.Code()], defaults[f.Code()]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Settings().Position, out[j].Settings().Position
		if pi != pj {
			return pi < pj
		}
		return out[i].Field().Code() < out[j].Field().Code()
	})
	return out, nil
}

func (s *Service) rowsByField(ctx context.Context, entityType string, categoryID *string) (map[string]*domfacet.Row, error) {
	rows, err := s.configs.FindByEntityAndCategory(ctx, entityType, categoryID)
	if err != nil {
		return nil, fmt.Errorf("find facet configurations: %w", err)
	}
	out := make(map[string]*domfacet.Row, len(rows))
	for i := range rows {
		out[rows[i].SourceField] = &rows[i]
	}
	return out, nil
}

func (s *Service) checkCategory(ctx context.Context, id string) error {
	ok, err := s.categories.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check category %s: %w", id, err)
	}
	if !ok {
		return &domain.CategoryNotFoundError{CategoryID: id}
	}
	return nil
}

// Plan resolves the visible facets of m and builds their aggregations.
// Hidden facets and facets without possible options are skipped.
func (s *Service) Plan(ctx context.Context, m *mapping.Mapping, categoryID *string, priceGroupID string) ([]Entry, error) {
	categoryID = normalize(categoryID)
	configs, err := s.resolve(ctx, m, categoryID)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, c := range configs {
		if c.Settings().DisplayMode == domfacet.DisplayHidden {
			continue
		}
		e, err := s.entry(ctx, m, c, categoryID, priceGroupID)
		if err != nil {
			return nil, err
		}
		if e.Empty {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ViewMore builds the aggregation listing every option of one facet field.
func (s *Service) ViewMore(ctx context.Context, m *mapping.Mapping, field string, categoryID *string, priceGroupID string) (Entry, error) {
	categoryID = normalize(categoryID)
	f, ok := m.Field(field)
	if !ok {
		suggestion, _ := m.SuggestClosestField(field)
		return Entry{}, &domain.InvalidFilterFieldError{Field: field, Suggestion: suggestion}
	}
	configs, err := s.resolve(ctx, m, categoryID)
	if err != nil {
		return Entry{}, err
	}
	for _, c := range configs {
		if c.Field().Code() != f.Code() {
			continue
		}
		return s.entry(ctx, m, c.WithMaxSize(s.viewMoreSize), categoryID, priceGroupID)
	}
	return Entry{}, &domain.InvalidFilterFieldError{Field: field, Reason: "is not used in aggregations"}
}

func (s *Service) entry(ctx context.Context, m *mapping.Mapping, c domfacet.Configuration, categoryID *string, priceGroupID string) (Entry, error) {
	f := c.Field()

	var include []string
	if c.BucketType() == domfacet.BucketCategory {
		parent := ""
		if categoryID != nil {
			parent = *categoryID
		}
		children, err := s.categories.Children(ctx, parent)
		if err != nil {
			return Entry{}, fmt.Errorf("list child categories: %w", err)
		}
		if len(children) == 0 {
			return Entry{Configuration: c, Aggregation: domfacet.NewAggregation(c, nil, nil), Empty: true}, nil
		}
		include = children
	}

	var nestedFilter query.Node
	if f.Type() == mapping.Price && f.IsNested() && priceGroupID != "" {
		group := f.NestedPath() + "." + filter.PriceGroupField
		if gf, ok := m.Field(group); ok {
			group = gf.ExactPath()
		}
		nestedFilter = query.Term{Field: group, Value: priceGroupID}
	}
	return Entry{Configuration: c, Aggregation: domfacet.NewAggregation(c, include, nestedFilter)}, nil
}

// SaveConfiguration validates and stores a facet configuration row.
func (s *Service) SaveConfiguration(ctx context.Context, row domfacet.Row) error {
	row.CategoryID = normalize(row.CategoryID)
	if err := row.Validate(); err != nil {
		return domain.NewInvalidRequest("Invalid facet configuration: %s.", err)
	}
	m, err := s.mappings.ResolveMapping(ctx, row.EntityType)
	if err != nil {
		return err
	}
	f, ok := m.Field(row.SourceField)
	if !ok {
		suggestion, _ := m.SuggestClosestField(row.SourceField)
		return &domain.InvalidFilterFieldError{Field: row.SourceField, Suggestion: suggestion}
	}
	row.SourceField = f.Code()
	if row.CategoryID != nil {
		if err := s.checkCategory(ctx, *row.CategoryID); err != nil {
			return err
		}
	}
	if err := s.configs.Upsert(ctx, row); err != nil {
		return fmt.Errorf("save facet configuration: %w", err)
	}
	return nil
}

// Read maps a raw aggregations response onto entries. Facets that must not be shown are dropped.
func Read(entries []Entry, raw map[string]any, total int64) []domfacet.Facet {
	out := make([]domfacet.Facet, 0, len(entries))
	for _, e := range entries {
		sub, _ := raw[e.Aggregation.Name].(map[string]any)
		if sub == nil {
			sub = map[string]any{}
		}
		if f, ok := domfacet.Read(e.Aggregation, e.Configuration, sub, total); ok {
			out = append(out, f)
		}
	}
	return out
}

// Aggregations returns the aggregations of entries.
func Aggregations(entries []Entry) []domfacet.Aggregation {
	out := make([]domfacet.Aggregation, len(entries))
	for i, e := range entries {
		out[i] = e.Aggregation
	}
	return out
}

func normalize(categoryID *string) *string {
	if categoryID == nil || *categoryID == "" {
		return nil
	}
	return categoryID
}
