package search

import (
	"encoding/json"
	"fmt"

	domfacet "github.com/gally-search/gally/internal/domain/facet"
	"github.com/gally-search/gally/internal/domain/search/query"
	"github.com/gally-search/gally/internal/domain/search/sorting"
	"github.com/gally-search/gally/internal/usecase/facet"
)

// NativeRequest is an assembled engine request, ready to render.
type NativeRequest struct {
	Index  string
	Query  query.Node
	Sort   []sorting.Order
	Facets []facet.Entry
	From   int
	Size   int
	// Page is the 1-based page the window was computed from.
	Page int
}

// Source renders the request body: query, sort, aggs, from, size and track_total_hits.
func (r NativeRequest) Source() map[string]any {
	body := map[string]any{
		"from":             r.From,
		"size":             r.Size,
		"track_total_hits": true,
	}
	if r.Query != nil {
		body["query"] = r.Query.Source()
	}
	if len(r.Sort) > 0 {
		body["sort"] = sorting.Sources(r.Sort)
	}
	if len(r.Facets) > 0 {
		body["aggs"] = domfacet.Sources(facet.Aggregations(r.Facets))
	}
	return body
}

// Body renders the request body as JSON.
func (r NativeRequest) Body() ([]byte, error) {
	b, err := json.Marshal(r.Source())
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}
	return b, nil
}
