package mapping

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gally-search/gally/internal/domain"
	"github.com/gally-search/gally/internal/domain/mapping"
)

// Service resolves entity mappings and caches them process-wide.
type Service struct {
	provider Provider

	mu    sync.RWMutex
	cache map[string]*mapping.Mapping
}

// New creates a Service.
func New(p Provider) *Service {
	return &Service{provider: p, cache: make(map[string]*mapping.Mapping)}
}

// ResolveMapping returns the mapping of entityType.
func (s *Service) ResolveMapping(ctx context.Context, entityType string) (*mapping.Mapping, error) {
	if entityType == "" {
		return nil, &domain.UnknownEntityError{EntityType: entityType}
	}

	s.mu.RLock()
	m, ok := s.cache[entityType]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := s.provider.GetMapping(ctx, entityType)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEntity) {
			return nil, &domain.UnknownEntityError{EntityType: entityType}
		}
		return nil, fmt.Errorf("get mapping of %s: %w", entityType, err)
	}
	if m == nil || len(m.Fields()) == 0 {
		return nil, &domain.UnknownEntityError{EntityType: entityType}
	}

	s.mu.Lock()
	s.cache[entityType] = m
	s.mu.Unlock()
	return m, nil
}

// Invalidate drops the cached mapping of entityType, or every mapping when entityType is empty.
func (s *Service) Invalidate(entityType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entityType == "" {
		s.cache = make(map[string]*mapping.Mapping)
		return
	}
	delete(s.cache, entityType)
}

// IsFieldKnown reports whether code resolves to a field of m.
func IsFieldKnown(m *mapping.Mapping, code string) bool {
	return m.IsFieldKnown(code)
}

// SuggestClosestField returns the closest known field name, or "" when none is close.
func SuggestClosestField(m *mapping.Mapping, code string) string {
	s, _ := m.SuggestClosestField(code)
	return s
}
