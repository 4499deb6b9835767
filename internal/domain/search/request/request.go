package request

import (
	"github.com/gally-search/gally/internal/domain"
	"github.com/gally-search/gally/internal/domain/geo"
	"github.com/gally-search/gally/internal/domain/search/filter"
	"github.com/gally-search/gally/internal/domain/search/sorting"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed free-text query length.
	MaxQueryLength  = 1024
	DefaultPageSize = 30
	MaxPageSize     = 100
)

// Limits bounds pagination. Zero values take the package defaults.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Params are the raw search parameters of one call.
type Params struct {
	EntityType        string
	Catalog           string
	CategoryID        string
	PriceGroupID      string
	ReferenceLocation string
	Page              int
	PageSize          int
	Text              string
	Filters           []filter.Node
	Sort              []sorting.Spec
	WithFacets        bool
}

// Context is the validated scoping envelope of one search call.
type Context struct {
	entityType        string
	catalog           string
	categoryID        string
	priceGroupID      string
	referenceLocation *geo.Point
	page              int
	pageSize          int
	text              string
	filters           []filter.Node
	sort              []sorting.Spec
	withFacets        bool
}

// New validates and normalizes search parameters.
// Defaults: page=1, pageSize=limits.DefaultPageSize. pageSize is clamped to limits.MaxPageSize.
func New(p Params, limits Limits) (Context, error) {
	if limits.DefaultPageSize <= 0 {
		limits.DefaultPageSize = DefaultPageSize
	}
	if limits.MaxPageSize <= 0 {
		limits.MaxPageSize = MaxPageSize
	}

	if p.EntityType == "" {
		return Context{}, domain.NewInvalidRequest("entity type is required")
	}
	if p.Catalog == "" {
		return Context{}, &domain.MissingLocalizedCatalogError{}
	}
	if len(p.Text) > MaxQueryLength {
		return Context{}, domain.NewInvalidRequest("search text too long (max %d chars)", MaxQueryLength)
	}
	if p.Page < 0 || p.PageSize < 0 {
		return Context{}, domain.NewInvalidRequest("page and pageSize must not be negative")
	}

	var ref *geo.Point
	if p.ReferenceLocation != "" {
		pt, err := geo.ParsePoint(p.ReferenceLocation)
		if err != nil {
			return Context{}, domain.NewInvalidRequest("%s", err.Error())
		}
		ref = &pt
	}

	page := p.Page
	if page == 0 {
		page = 1
	}
	size := p.PageSize
	if size == 0 {
		size = limits.DefaultPageSize
	}
	if size > limits.MaxPageSize {
		size = limits.MaxPageSize
	}

	return Context{
		entityType:        p.EntityType,
		catalog:           p.Catalog,
		categoryID:        p.CategoryID,
		priceGroupID:      p.PriceGroupID,
		referenceLocation: ref,
		page:              page,
		pageSize:          size,
		text:              p.Text,
		filters:           p.Filters,
		sort:              p.Sort,
		withFacets:        p.WithFacets,
	}, nil
}

// EntityType returns the searched entity type.
func (c *Context) EntityType() string { return c.entityType }

// Catalog returns the localized catalog id or code.
func (c *Context) Catalog() string { return c.catalog }

// CategoryID returns the current category, or "" when none.
func (c *Context) CategoryID() string { return c.categoryID }

// PriceGroupID returns the price group, or "" when none.
func (c *Context) PriceGroupID() string { return c.priceGroupID }

// ReferenceLocation returns the geo reference point (nil when none).
func (c *Context) ReferenceLocation() *geo.Point { return c.referenceLocation }

// Page returns the 1-based current page.
func (c *Context) Page() int { return c.page }

// PageSize returns the number of items per page.
func (c *Context) PageSize() int { return c.pageSize }

// From returns the offset of the first item of the page.
func (c *Context) From() int { return (c.page - 1) * c.pageSize }

// Text returns the free-text query.
func (c *Context) Text() string { return c.text }

// Filters returns the user filter tree.
func (c *Context) Filters() []filter.Node { return c.filters }

// Sort returns the requested sort specs.
func (c *Context) Sort() []sorting.Spec { return c.sort }

// WithFacets reports whether facets are requested.
func (c *Context) WithFacets() bool { return c.withFacets }

// WithSort returns a copy of c with other sort specs.
func (c *Context) WithSort(specs []sorting.Spec) Context {
	cp := *c
	cp.sort = specs
	return cp
}
