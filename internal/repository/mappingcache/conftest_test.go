package mappingcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gally-search/gally/internal/db"
	"github.com/gally-search/gally/internal/domain"
	"github.com/gally-search/gally/internal/domain/mapping"
)

type mockProvider struct {
	m     *mapping.Mapping
	calls int
}

func (p *mockProvider) GetMapping(_ context.Context, entityType string) (*mapping.Mapping, error) {
	p.calls++
	if p.m == nil || p.m.EntityType() != entityType {
		return nil, &domain.UnknownEntityError{EntityType: entityType}
	}
	return p.m, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func productMapping(t *testing.T) *mapping.Mapping {
	t.Helper()
	m, err := mapping.New("product", []mapping.Field{
		mapping.ReconstructField("name", mapping.Text, mapping.Props{Label: "Name", Searchable: true, Weight: 3}),
		mapping.ReconstructField("price", mapping.Nested, mapping.Props{}),
		mapping.ReconstructField("price.price", mapping.Price, mapping.Props{Filterable: true, UsedInAggregation: true}),
	})
	if err != nil {
		t.Fatalf("mapping.New: %v", err)
	}
	return m
}

func newTestProvider(t *testing.T) (*Provider, *mockProvider, *mockKVStore) {
	t.Helper()
	inner := &mockProvider{m: productMapping(t)}
	ms := &mockKVStore{}
	return New(inner, ms, nil, zap.NewNop()), inner, ms
}
