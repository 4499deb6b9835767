package facet

import (
	"context"

	domfacet "github.com/gally-search/gally/internal/domain/facet"
	"github.com/gally-search/gally/internal/domain/mapping"
)

// MappingResolver resolves entity mappings.
type MappingResolver interface {
	ResolveMapping(ctx context.Context, entityType string) (*mapping.Mapping, error)
}

// ConfigStore reads and writes stored facet configuration rows.
type ConfigStore interface {
	// FindByEntityAndCategory returns the rows of one scope. A nil categoryID selects default rows.
	FindByEntityAndCategory(ctx context.Context, entityType string, categoryID *string) ([]domfacet.Row, error)
	Upsert(ctx context.Context, row domfacet.Row) error
}

// CategoryStore answers category tree lookups.
type CategoryStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	// Children returns the ids of the direct children of id; "" selects root categories.
	Children(ctx context.Context, id string) ([]string, error)
}
