// Package sortorder resolves requested sort directives into engine sort orders.
package sortorder

import (
	"context"

	"github.com/gally-search/gally/internal/domain"
	"github.com/gally-search/gally/internal/domain/geo"
	"github.com/gally-search/gally/internal/domain/mapping"
	"github.com/gally-search/gally/internal/domain/search/query"
	"github.com/gally-search/gally/internal/domain/search/sorting"
	"github.com/gally-search/gally/internal/usecase/filter"
)

// ScoreLabel is the display label of the relevance sorting option.
const ScoreLabel = "Relevance"

// Scope carries the request context sort orders are resolved in.
type Scope struct {
	PriceGroupID      string
	ReferenceLocation *geo.Point
}

// Option is one sorting option offered to clients.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Service builds sort orders.
type Service struct {
	mappings  MappingResolver
	multiSort bool
}

// New creates a sort order service.
func New(mappings MappingResolver) *Service {
	return &Service{mappings: mappings}
}

// WithMultiSort allows more than one primary sort field per request.
func (s *Service) WithMultiSort(allow bool) *Service {
	s.multiSort = allow
	return s
}

// Build resolves specs against m and appends the tie-break orders.
// With no specs the result is score desc, id desc.
func (s *Service) Build(m *mapping.Mapping, scope Scope, specs []sorting.Spec) ([]sorting.Order, error) {
	if err := s.checkMultiSort(m, specs); err != nil {
		return nil, err
	}

	orders := make([]sorting.Order, 0, len(specs)+2)
	for _, spec := range specs {
		o, err := resolve(m, scope, spec)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return appendTieBreak(m, orders), nil
}

func (s *Service) checkMultiSort(m *mapping.Mapping, specs []sorting.Spec) error {
	if s.multiSort {
		return nil
	}
	var primary []string
	for _, spec := range specs {
		if spec.Field == sorting.ScoreField || spec.Field == sorting.IDField {
			continue
		}
		name := spec.Field
		if f, ok := m.Field(spec.Field); ok {
			name = f.PublicCode()
		}
		primary = append(primary, name)
	}
	if len(primary) > 1 {
		return &domain.MultiSortNotAllowedError{Fields: primary}
	}
	return nil
}

// ListSortingOptions returns relevance followed by the sortable fields of entityType.
func (s *Service) ListSortingOptions(ctx context.Context, entityType string) ([]Option, error) {
	m, err := s.mappings.ResolveMapping(ctx, entityType)
	if err != nil {
		return nil, err
	}
	options := []Option{{Code: sorting.ScoreField, Label: ScoreLabel, Type: "score"}}
	for _, f := range m.SortableFields() {
		options = append(options, Option{Code: f.PublicCode(), Label: f.Label(), Type: string(f.Type())})
	}
	return options, nil
}

func resolve(m *mapping.Mapping, scope Scope, spec sorting.Spec) (sorting.Order, error) {
	switch spec.Field {
	case sorting.ScoreField:
		return sorting.NewScoreOrder(spec.Direction), nil
	case sorting.IDField:
		return idOrder(m, spec.Direction), nil
	case sorting.ScriptField:
		if spec.Script == nil || spec.Script.Source == "" {
			return sorting.Order{}, &domain.InvalidSortFieldError{
				Field: spec.Field, Reason: "requires a script source",
			}
		}
		return sorting.NewScriptOrder(*spec.Script, spec.Direction), nil
	}

	f, ok := m.Field(spec.Field)
	if !ok {
		suggestion, _ := m.SuggestClosestField(spec.Field)
		return sorting.Order{}, &domain.InvalidSortFieldError{Field: spec.Field, Suggestion: suggestion}
	}
	if f.Type() == mapping.Nested || !f.IsSortable() {
		return sorting.Order{}, &domain.InvalidSortFieldError{Field: spec.Field, Reason: "is not sortable"}
	}

	switch {
	case f.Type() == mapping.GeoPoint:
		return distanceOrder(f, scope, spec)
	case f.IsNested():
		return nestedOrder(m, f, scope, spec)
	default:
		return sorting.NewStandardOrder(f.ExactPath(), f.PublicCode(), spec.Direction), nil
	}
}

func distanceOrder(f mapping.Field, scope Scope, spec sorting.Spec) (sorting.Order, error) {
	d := sorting.Distance{
		Unit:         sorting.DefaultUnit,
		Mode:         sorting.DefaultMode,
		DistanceType: sorting.DefaultDistanceType,
	}
	var ref *geo.Point
	if g := spec.Geo; g != nil {
		p, err := geo.ParsePoint(g.ReferenceLocation)
		if err != nil {
			return sorting.Order{}, &domain.InvalidSortFieldError{
				Field: spec.Field, Reason: "has an invalid reference location",
			}
		}
		ref = &p
		d.IgnoreUnmapped = g.IgnoreUnmapped
		if g.Unit != "" {
			d.Unit = g.Unit
		}
		if g.Mode != "" {
			d.Mode = g.Mode
		}
		if g.DistanceType != "" {
			d.DistanceType = g.DistanceType
		}
	}
	if ref == nil {
		ref = scope.ReferenceLocation
	}
	if ref == nil {
		return sorting.Order{}, &domain.InvalidSortFieldError{
			Field: spec.Field, Reason: "requires a reference location",
		}
	}
	d.Reference = *ref
	return sorting.NewDistanceOrder(f.Code(), f.PublicCode(), spec.Direction, d), nil
}

// nestedOrder compiles the requested sub-document filter inside the nested scope.
// Without one, price sorts are restricted to the caller's price group.
func nestedOrder(m *mapping.Mapping, f mapping.Field, scope Scope, spec sorting.Spec) (sorting.Order, error) {
	var nested query.Node
	switch {
	case len(spec.NestedFilter) > 0:
		q, err := filter.Build(m, filter.Scope{InsideNested: f.NestedPath()}, spec.NestedFilter)
		if err != nil {
			return sorting.Order{}, err
		}
		nested = q
	case f.Type() == mapping.Price && scope.PriceGroupID != "":
		group := f.NestedPath() + "." + filter.PriceGroupField
		if gf, ok := m.Field(group); ok {
			group = gf.ExactPath()
		}
		nested = query.Term{Field: group, Value: scope.PriceGroupID}
	}
	return sorting.NewNestedOrder(f.ExactPath(), f.PublicCode(), spec.Direction,
		f.NestedPath(), nested), nil
}

func idOrder(m *mapping.Mapping, d sorting.Direction) sorting.Order {
	path := sorting.IDField
	if f, ok := m.Field(sorting.IDField); ok {
		path = f.ExactPath()
	}
	return sorting.NewStandardOrder(path, sorting.IDField, d)
}

// appendTieBreak completes orders with score then id, each in the direction
// opposite to the primary. A score primary keeps its own direction for id.
func appendTieBreak(m *mapping.Mapping, orders []sorting.Order) []sorting.Order {
	if len(orders) == 0 {
		return []sorting.Order{sorting.NewScoreOrder(sorting.Desc), idOrder(m, sorting.Desc)}
	}

	primary := orders[0]
	dir := primary.Direction().Opposite()
	if primary.Kind() == sorting.KindScore {
		dir = primary.Direction()
	}

	var hasScore, hasID bool
	for _, o := range orders {
		switch {
		case o.Kind() == sorting.KindScore:
			hasScore = true
		case o.IsTieBreak():
			hasID = true
		}
	}
	if !hasScore {
		orders = append(orders, sorting.NewScoreOrder(dir))
	}
	if !hasID {
		orders = append(orders, idOrder(m, dir))
	}
	return orders
}
