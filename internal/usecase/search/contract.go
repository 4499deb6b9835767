package search

import (
	"context"

	"github.com/gally-search/gally/internal/db"
	"github.com/gally-search/gally/internal/domain/catalog"
	"github.com/gally-search/gally/internal/domain/mapping"
	"github.com/gally-search/gally/internal/domain/search/sorting"
	"github.com/gally-search/gally/internal/usecase/facet"
	"github.com/gally-search/gally/internal/usecase/sortorder"
)

// MappingResolver resolves entity mappings.
type MappingResolver interface {
	ResolveMapping(ctx context.Context, entityType string) (*mapping.Mapping, error)
}

// CatalogResolver resolves a localized catalog by id or code.
// It returns domain.ErrMissingLocalizedCatalog (or an error wrapping it) when none matches.
type CatalogResolver interface {
	Resolve(ctx context.Context, idOrCode string) (catalog.LocalizedCatalog, error)
}

// CategoryChecker checks category existence.
type CategoryChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Engine runs rendered search requests.
type Engine interface {
	Search(ctx context.Context, index string, body []byte) (*db.SearchResponse, error)
}

// SortBuilder resolves sort directives.
type SortBuilder interface {
	Build(m *mapping.Mapping, scope sortorder.Scope, specs []sorting.Spec) ([]sorting.Order, error)
}

// FacetPlanner plans facet aggregations.
type FacetPlanner interface {
	Plan(ctx context.Context, m *mapping.Mapping, categoryID *string, priceGroupID string) ([]facet.Entry, error)
	ViewMore(ctx context.Context, m *mapping.Mapping, field string, categoryID *string, priceGroupID string) (facet.Entry, error)
}
