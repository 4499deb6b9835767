package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gally-search/gally/internal/domain"
	domfacet "github.com/gally-search/gally/internal/domain/facet"
	"github.com/gally-search/gally/internal/domain/mapping"
	"github.com/gally-search/gally/internal/domain/search/filter"
	"github.com/gally-search/gally/internal/domain/search/request"
	"github.com/gally-search/gally/internal/domain/search/result"
	"github.com/gally-search/gally/internal/domain/search/sorting"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts validator errors into an invalid request error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewInvalidRequest("Invalid request: %s.", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("field '%s' %s", fe.Field(), msgForTag(fe))
	}
	return domain.NewInvalidRequest("%s", strings.Join(msgs, "; "))
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

// SearchRequest is the body of the search and view-more endpoints.
// Filter is an object keyed by field or combinator, or a list of such objects.
// Sort is an object keyed by field, or a list of single-key objects. Object keys
// set sort priority in request order.
type SearchRequest struct {
	Catalog           string          `json:"catalog"`
	Category          string          `json:"category" validate:"max=255"`
	PriceGroup        string          `json:"priceGroup" validate:"max=255"`
	ReferenceLocation string          `json:"referenceLocation" validate:"max=64"`
	Page              int             `json:"page" validate:"gte=0"`
	PageSize          int             `json:"pageSize" validate:"gte=0"`
	Search            string          `json:"search"`
	Filter            any             `json:"filter"`
	Sort              json.RawMessage `json:"sort"`
	WithFacets        bool            `json:"withFacets"`
}

// params converts the body into search parameters of entityType.
func (r SearchRequest) params(entityType string) (request.Params, error) {
	filters, err := parseFilter(r.Filter)
	if err != nil {
		return request.Params{}, err
	}
	specs, err := parseSort(r.Sort)
	if err != nil {
		return request.Params{}, err
	}
	return request.Params{
		EntityType:        entityType,
		Catalog:           r.Catalog,
		CategoryID:        r.Category,
		PriceGroupID:      r.PriceGroup,
		ReferenceLocation: r.ReferenceLocation,
		Page:              r.Page,
		PageSize:          r.PageSize,
		Text:              r.Search,
		Filters:           filters,
		Sort:              specs,
		WithFacets:        r.WithFacets,
	}, nil
}

func parseFilter(raw any) ([]filter.Node, error) {
	var (
		nodes []filter.Node
		err   error
	)
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		nodes, err = filter.Parse(v)
	case []any:
		nodes, err = filter.ParseList(v)
	default:
		return nil, domain.NewInvalidRequest("Invalid filter: expected an object or a list.")
	}
	if err != nil {
		return nil, asInvalidRequest("filter", err)
	}
	return nodes, nil
}

func parseSort(raw json.RawMessage) ([]sorting.Spec, error) {
	specs, err := sorting.DecodeSpecs(raw)
	if errors.Is(err, sorting.ErrNotObjectOrList) {
		return nil, domain.NewInvalidRequest("Invalid sort: expected an object or a list.")
	}
	if err != nil {
		return nil, asInvalidRequest("sort", err)
	}
	return specs, nil
}

// asInvalidRequest keeps domain errors and turns parse errors into invalid request errors.
func asInvalidRequest(what string, err error) error {
	if safeDomainMessage(err) != "" {
		return err
	}
	return domain.NewInvalidRequest("Invalid %s: %s.", what, err)
}

// ItemResponse is one search hit.
type ItemResponse struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Source map[string]any `json:"source"`
}

// SearchResponse is the reply of the search endpoint.
type SearchResponse struct {
	Collection     []ItemResponse    `json:"collection"`
	PaginationInfo result.Pagination `json:"paginationInfo"`
	SortInfo       result.SortInfo   `json:"sortInfo"`
	Aggregations   []domfacet.Facet  `json:"aggregations,omitempty"`
}

func searchResponse(p *result.Page) SearchResponse {
	items := make([]ItemResponse, len(p.Items))
	for i := range p.Items {
		items[i] = ItemResponse{ID: p.Items[i].ID(), Score: p.Items[i].Score(), Source: p.Items[i].Source()}
	}
	return SearchResponse{
		Collection:     items,
		PaginationInfo: p.Pagination,
		SortInfo:       p.SortInfo,
		Aggregations:   p.Aggregations,
	}
}

// FieldResponse is one mapping field.
type FieldResponse struct {
	Code              string `json:"code"`
	Type              string `json:"type"`
	Label             string `json:"label"`
	Searchable        bool   `json:"searchable"`
	Filterable        bool   `json:"filterable"`
	Sortable          bool   `json:"sortable"`
	Spannable         bool   `json:"spannable"`
	UsedInAggregation bool   `json:"usedInAggregation"`
	Weight            int    `json:"weight"`
	NestedPath        string `json:"nestedPath,omitempty"`
}

// MappingResponse is the reply of the mapping endpoint.
type MappingResponse struct {
	EntityType string          `json:"entityType"`
	Fields     []FieldResponse `json:"fields"`
}

func mappingResponse(m *mapping.Mapping) MappingResponse {
	fields := m.Fields()
	out := make([]FieldResponse, len(fields))
	for i, f := range fields {
		out[i] = FieldResponse{
			Code:              f.PublicCode(),
			Type:              string(f.Type()),
			Label:             f.Label(),
			Searchable:        f.IsSearchable(),
			Filterable:        f.IsFilterable(),
			Sortable:          f.IsSortable(),
			Spannable:         f.IsSpannable(),
			UsedInAggregation: f.IsUsedInAggregation(),
			Weight:            f.Weight(),
			NestedPath:        f.NestedPath(),
		}
	}
	return MappingResponse{EntityType: m.EntityType(), Fields: out}
}

// FacetConfigurationResponse is one resolved facet configuration.
type FacetConfigurationResponse struct {
	Field      string            `json:"field"`
	Label      string            `json:"label"`
	BucketType string            `json:"bucketType"`
	CategoryID *string           `json:"categoryId"`
	IsVirtual  bool              `json:"isVirtual"`
	Settings   domfacet.Settings `json:"settings"`
	Defaults   domfacet.Settings `json:"defaults"`
}

func facetConfigurationResponses(configs []domfacet.Configuration) []FacetConfigurationResponse {
	out := make([]FacetConfigurationResponse, len(configs))
	for i, c := range configs {
		out[i] = FacetConfigurationResponse{
			Field:      c.Field().PublicCode(),
			Label:      c.Field().Label(),
			BucketType: string(c.BucketType()),
			CategoryID: c.CategoryID(),
			IsVirtual:  c.IsVirtual(),
			Settings:   c.Settings(),
			Defaults:   c.Defaults(),
		}
	}
	return out
}

// FacetConfigurationRequest is the body of a facet configuration update.
// Omitted attributes inherit from the default scope or the built-ins.
type FacetConfigurationRequest struct {
	DisplayMode  *string  `json:"displayMode" validate:"omitempty,oneof=auto displayed hidden"`
	CoverageRate *int     `json:"coverageRate" validate:"omitempty,gte=0,lte=100"`
	MaxSize      *int     `json:"maxSize" validate:"omitempty,gte=1"`
	SortOrder    *string  `json:"sortOrder" validate:"omitempty,oneof=_count _key natural"`
	Position     *int     `json:"position"`
	Interval     *float64 `json:"interval" validate:"omitempty,gte=0"`
	Format       *string  `json:"format" validate:"omitempty,max=32"`
}

func (r FacetConfigurationRequest) row(entityType, field string, categoryID *string) domfacet.Row {
	row := domfacet.Row{
		EntityType:   entityType,
		SourceField:  field,
		CategoryID:   categoryID,
		CoverageRate: r.CoverageRate,
		MaxSize:      r.MaxSize,
		Position:     r.Position,
		Interval:     r.Interval,
		Format:       r.Format,
	}
	if r.DisplayMode != nil {
		m := domfacet.DisplayMode(*r.DisplayMode)
		row.DisplayMode = &m
	}
	if r.SortOrder != nil {
		o := domfacet.SortOrder(*r.SortOrder)
		row.SortOrder = &o
	}
	return row
}

// ViewMoreResponse is the reply of the view-more endpoint.
type ViewMoreResponse struct {
	Field   string            `json:"field"`
	Options []domfacet.Option `json:"options"`
}

// HealthResponse is the reply of the health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}
