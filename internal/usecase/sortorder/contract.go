package sortorder

import (
	"context"

	"github.com/gally-search/gally/internal/domain/mapping"
)

// MappingResolver resolves entity mappings.
type MappingResolver interface {
	ResolveMapping(ctx context.Context, entityType string) (*mapping.Mapping, error)
}
