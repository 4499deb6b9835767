// Package fixture serves catalogs, categories, mappings and facet
// configurations from a YAML file, for runs backed by the memory engine.
package fixture

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gally-search/gally/internal/domain"
	domcatalog "github.com/gally-search/gally/internal/domain/catalog"
	domfacet "github.com/gally-search/gally/internal/domain/facet"
	"github.com/gally-search/gally/internal/domain/mapping"
	"github.com/gally-search/gally/internal/repository/sourcefield"
)

// File is the on-disk layout. Indexed documents live under "indexes" and are
// read by the memory engine from the same file.
type File struct {
	Catalogs            []Catalog                `yaml:"catalogs"`
	Categories          []Category               `yaml:"categories"`
	SourceFields        map[string][]SourceField `yaml:"source_fields"`
	FacetConfigurations []FacetConfiguration     `yaml:"facet_configurations"`
}

// Catalog is a localized catalog entry.
type Catalog struct {
	ID      string `yaml:"id"`
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Locale  string `yaml:"locale"`
	Catalog string `yaml:"catalog"`
}

// Category is a node of the category tree. An empty Parent marks a root.
type Category struct {
	ID     string `yaml:"id"`
	Parent string `yaml:"parent"`
}

// SourceField is one source field of an entity.
type SourceField struct {
	Code              string `yaml:"code"`
	Type              string `yaml:"type"`
	Label             string `yaml:"label"`
	Searchable        bool   `yaml:"searchable"`
	Filterable        bool   `yaml:"filterable"`
	Sortable          bool   `yaml:"sortable"`
	Spannable         bool   `yaml:"spannable"`
	UsedInAggregation bool   `yaml:"used_in_aggregation"`
	Weight            int    `yaml:"weight"`
}

// FacetConfiguration is a stored facet configuration row.
type FacetConfiguration struct {
	EntityType   string   `yaml:"entity_type"`
	Field        string   `yaml:"field"`
	CategoryID   *string  `yaml:"category_id"`
	DisplayMode  *string  `yaml:"display_mode"`
	CoverageRate *int     `yaml:"coverage_rate"`
	MaxSize      *int     `yaml:"max_size"`
	SortOrder    *string  `yaml:"sort_order"`
	Position     *int     `yaml:"position"`
	Interval     *float64 `yaml:"interval"`
	Format       *string  `yaml:"format"`
}

// Store answers the catalog, category, mapping and facet configuration
// lookups from fixture data. Facet configuration writes stay in memory.
type Store struct {
	catalogs []Catalog
	parents  map[string]string
	order    []string
	mappings map[string]*mapping.Mapping

	mu      sync.RWMutex
	configs []domfacet.Row
}

// Load reads a fixture file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return New(f)
}

// New builds a store from decoded fixture data.
func New(f File) (*Store, error) {
	s := &Store{
		catalogs: f.Catalogs,
		parents:  make(map[string]string, len(f.Categories)),
		mappings: make(map[string]*mapping.Mapping, len(f.SourceFields)),
	}
	for _, c := range f.Categories {
		if c.ID == "" {
			return nil, fmt.Errorf("category id is required")
		}
		s.parents[c.ID] = c.Parent
		s.order = append(s.order, c.ID)
	}

	for entity, sourceFields := range f.SourceFields {
		var fields []mapping.Field
		for _, sf := range sourceFields {
			expanded, err := sourcefield.Expand(sf.Code, sf.Type, mapping.Props{
				Label:             sf.Label,
				Searchable:        sf.Searchable,
				Filterable:        sf.Filterable,
				Sortable:          sf.Sortable,
				Spannable:         sf.Spannable,
				UsedInAggregation: sf.UsedInAggregation,
				Weight:            sf.Weight,
			})
			if err != nil {
				return nil, fmt.Errorf("source field %s.%s: %w", entity, sf.Code, err)
			}
			fields = append(fields, expanded...)
		}
		m, err := mapping.New(entity, fields)
		if err != nil {
			return nil, fmt.Errorf("build %s mapping: %w", entity, err)
		}
		s.mappings[entity] = m
	}

	for _, fc := range f.FacetConfigurations {
		row := fc.row()
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("facet configuration %s.%s: %w", fc.EntityType, fc.Field, err)
		}
		s.configs = append(s.configs, row)
	}
	return s, nil
}

func (fc FacetConfiguration) row() domfacet.Row {
	row := domfacet.Row{
		EntityType:   fc.EntityType,
		SourceField:  mapping.InternalName(fc.Field),
		CategoryID:   fc.CategoryID,
		CoverageRate: fc.CoverageRate,
		MaxSize:      fc.MaxSize,
		Position:     fc.Position,
		Interval:     fc.Interval,
		Format:       fc.Format,
	}
	if fc.DisplayMode != nil {
		m := domfacet.DisplayMode(*fc.DisplayMode)
		row.DisplayMode = &m
	}
	if fc.SortOrder != nil {
		o := domfacet.SortOrder(*fc.SortOrder)
		row.SortOrder = &o
	}
	return row
}

// Resolve returns the localized catalog with the given code or id. Codes win over ids.
func (s *Store) Resolve(_ context.Context, idOrCode string) (domcatalog.LocalizedCatalog, error) {
	if idOrCode == "" {
		return domcatalog.LocalizedCatalog{}, &domain.MissingLocalizedCatalogError{}
	}
	for _, byCode := range []bool{true, false} {
		for _, c := range s.catalogs {
			if (byCode && c.Code == idOrCode) || (!byCode && c.ID == idOrCode) {
				return domcatalog.Reconstruct(c.ID, c.Code, c.Name, c.Locale, c.Catalog), nil
			}
		}
	}
	return domcatalog.LocalizedCatalog{}, &domain.MissingLocalizedCatalogError{Catalog: idOrCode}
}

// Exists reports whether the category id is known.
func (s *Store) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s.parents[id]
	return ok, nil
}

// Children returns the ids of the direct children of id in file order; "" selects roots.
func (s *Store) Children(_ context.Context, id string) ([]string, error) {
	out := []string{}
	for _, c := range s.order {
		if s.parents[c] == id {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetMapping returns the mapping of entityType.
func (s *Store) GetMapping(_ context.Context, entityType string) (*mapping.Mapping, error) {
	m, ok := s.mappings[entityType]
	if !ok {
		return nil, &domain.UnknownEntityError{EntityType: entityType}
	}
	return m, nil
}

// FindByEntityAndCategory returns the rows of one scope ordered by field. A nil categoryID selects default rows.
func (s *Store) FindByEntityAndCategory(_ context.Context, entityType string, categoryID *string) ([]domfacet.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domfacet.Row{}
	for _, r := range s.configs {
		if r.EntityType == entityType && sameCategory(r.CategoryID, categoryID) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SourceField < out[j].SourceField })
	return out, nil
}

// Upsert inserts the row or replaces the row of the same scope.
func (s *Store) Upsert(_ context.Context, row domfacet.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.configs {
		if r.EntityType == row.EntityType && r.SourceField == row.SourceField && sameCategory(r.CategoryID, row.CategoryID) {
			s.configs[i] = row
			return nil
		}
	}
	s.configs = append(s.configs, row)
	return nil
}

func sameCategory(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
