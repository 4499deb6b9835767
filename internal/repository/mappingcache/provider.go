// Package mappingcache caches entity mappings in a key-value store.
package mappingcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gally-search/gally/internal/db"
	"github.com/gally-search/gally/internal/domain/mapping"
)

const keyPrefix = "gally:mapping:"

// DefaultTTL bounds how long a cached mapping outlives a source field change.
const DefaultTTL = 5 * time.Minute

// store is the consumer interface for the mapping cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// provider loads mappings from the source of truth.
type provider interface {
	GetMapping(ctx context.Context, entityType string) (*mapping.Mapping, error)
}

// Provider is a caching decorator over a mapping provider.
type Provider struct {
	inner      provider
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(inner provider, s store, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Provider {
	return &Provider{inner: inner, store: s, ttl: DefaultTTL, cacheTotal: cacheTotal, logger: logger}
}

// WithTTL overrides the cache entry lifetime.
func (p *Provider) WithTTL(ttl time.Duration) *Provider {
	if ttl > 0 {
		p.ttl = ttl
	}
	return p
}

// GetMapping returns the cached mapping of entityType or loads it from the inner provider.
// Cache failures are logged and never fail the call.
func (p *Provider) GetMapping(ctx context.Context, entityType string) (*mapping.Mapping, error) {
	key := keyPrefix + entityType

	if m, ok := p.getFromCache(ctx, key, entityType); ok {
		p.incCache("hit")
		return m, nil
	}
	p.incCache("miss")

	m, err := p.inner.GetMapping(ctx, entityType)
	if err != nil {
		return nil, err
	}
	p.putToCache(ctx, key, m)
	return m, nil
}

func (p *Provider) incCache(result string) {
	if p.cacheTotal != nil {
		p.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (p *Provider) getFromCache(ctx context.Context, key, entityType string) (*mapping.Mapping, bool) {
	data, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			p.logger.Warn("Failed to get cached mapping", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	m, err := decode(entityType, data)
	if err != nil {
		p.logger.Warn("Failed to parse cached mapping", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return m, true
}

func (p *Provider) putToCache(ctx context.Context, key string, m *mapping.Mapping) {
	data, err := encode(m)
	if err != nil {
		p.logger.Warn("Failed to encode mapping", zap.String("key", key), zap.Error(err))
		return
	}
	if err := p.store.SetWithTTL(ctx, key, data, p.ttl); err != nil {
		p.logger.Warn("Failed to cache mapping", zap.String("key", key), zap.Error(err))
	}
}

type fieldDTO struct {
	Code              string       `json:"code"`
	Type              mapping.Type `json:"type"`
	Label             string       `json:"label,omitempty"`
	Searchable        bool         `json:"searchable,omitempty"`
	Filterable        bool         `json:"filterable,omitempty"`
	Sortable          bool         `json:"sortable,omitempty"`
	Spannable         bool         `json:"spannable,omitempty"`
	UsedInAggregation bool         `json:"used_in_aggregation,omitempty"`
	Weight            int          `json:"weight,omitempty"`
}

func encode(m *mapping.Mapping) ([]byte, error) {
	fields := m.Fields()
	dtos := make([]fieldDTO, len(fields))
	for i, f := range fields {
		dtos[i] = fieldDTO{
			Code:              f.Code(),
			Type:              f.Type(),
			Label:             f.Label(),
			Searchable:        f.IsSearchable(),
			Filterable:        f.IsFilterable(),
			Sortable:          f.IsSortable(),
			Spannable:         f.IsSpannable(),
			UsedInAggregation: f.IsUsedInAggregation(),
			Weight:            f.Weight(),
		}
	}
	data, err := json.Marshal(dtos)
	if err != nil {
		return nil, fmt.Errorf("marshal mapping: %w", err)
	}
	return data, nil
}

func decode(entityType string, data []byte) (*mapping.Mapping, error) {
	var dtos []fieldDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("unmarshal mapping: %w", err)
	}
	fields := make([]mapping.Field, len(dtos))
	for i, d := range dtos {
		fields[i] = mapping.ReconstructField(d.Code, d.Type, mapping.Props{
			Label:             d.Label,
			Searchable:        d.Searchable,
			Filterable:        d.Filterable,
			Sortable:          d.Sortable,
			Spannable:         d.Spannable,
			UsedInAggregation: d.UsedInAggregation,
			Weight:            d.Weight,
		})
	}
	m, err := mapping.New(entityType, fields)
	if err != nil {
		return nil, fmt.Errorf("rebuild mapping: %w", err)
	}
	return m, nil
}
