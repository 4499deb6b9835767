package result

import (
	"github.com/gally-search/gally/internal/domain/facet"
	"github.com/gally-search/gally/internal/domain/search/sorting"
)

// Item is a single search hit.
type Item struct {
	id     string
	score  float64
	source map[string]any
	sort   []any
}

// New creates a search hit.
func New(id string, score float64, source map[string]any, sortValues []any) Item {
	return Item{id: id, score: score, source: source, sort: sortValues}
}

// ID returns the document identifier.
func (r *Item) ID() string { return r.id }

// Score returns the relevance score.
func (r *Item) Score() float64 { return r.score }

// Source returns the stored document.
func (r *Item) Source() map[string]any { return r.source }

// SortValues returns the engine sort values of the hit.
func (r *Item) SortValues() []any { return r.sort }

// Pagination describes the page window of a result.
type Pagination struct {
	LastPage     int   `json:"lastPage"`
	TotalCount   int64 `json:"totalCount"`
	ItemsPerPage int   `json:"itemsPerPage"`
	CurrentPage  int   `json:"currentPage"`
}

// NewPagination computes lastPage = ceil(total/size), at least 1.
func NewPagination(total int64, size, page int) Pagination {
	last := 1
	if size > 0 && total > 0 {
		last = int((total + int64(size) - 1) / int64(size))
	}
	return Pagination{LastPage: last, TotalCount: total, ItemsPerPage: size, CurrentPage: page}
}

// SortInfo exposes the effective primary sort.
type SortInfo struct {
	Current []sorting.Current `json:"current"`
}

// Page is one page of search results.
type Page struct {
	Items        []Item
	Pagination   Pagination
	SortInfo     SortInfo
	Aggregations []facet.Facet
}
