package mapping

import (
	"context"

	"github.com/gally-search/gally/internal/domain/mapping"
)

// Provider loads the field mapping of an entity type.
// It returns domain.ErrUnknownEntity (or an error wrapping it) for unregistered types.
type Provider interface {
	GetMapping(ctx context.Context, entityType string) (*mapping.Mapping, error)
}
