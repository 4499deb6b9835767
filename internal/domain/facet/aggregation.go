package facet

import (
	"github.com/gally-search/gally/internal/domain/mapping"
	"github.com/gally-search/gally/internal/domain/search/query"
)

// BucketType is the client-facing facet kind.
type BucketType string

// Bucket types.
const (
	BucketCheckbox      BucketType = "checkbox"
	BucketBoolean       BucketType = "boolean"
	BucketSlider        BucketType = "slider"
	BucketHistogram     BucketType = "histogram"
	BucketDateHistogram BucketType = "date_histogram"
	BucketCategory      BucketType = "category"
)

// DateHistogramInterval is the calendar interval of date facets.
const DateHistogramInterval = "1M"

// BucketTypeFor derives the bucket type of a field type.
func BucketTypeFor(t mapping.Type, interval float64) BucketType {
	switch {
	case t == mapping.Boolean || t == mapping.Stock:
		return BucketBoolean
	case t.IsNumeric() && interval > 0:
		return BucketHistogram
	case t.IsNumeric():
		return BucketSlider
	case t == mapping.Date:
		return BucketDateHistogram
	case t == mapping.Category:
		return BucketCategory
	default:
		return BucketCheckbox
	}
}

// Aggregation is one engine aggregation built from a facet configuration.
type Aggregation struct {
	Name       string
	Field      string
	Type       BucketType
	NestedPath string
	// Filter restricts nested sub-documents before bucketing (price group scoping).
	Filter   query.Node
	Size     int
	Order    SortOrder
	Interval float64
	Format   string
	Include  []string
}

// NewAggregation builds the aggregation of c. include lists the allowed category ids.
func NewAggregation(c Configuration, include []string, nestedFilter query.Node) Aggregation {
	f := c.Field()
	s := c.Settings()
	a := Aggregation{
		Name:       f.PublicCode(),
		Field:      f.ExactPath(),
		Type:       c.BucketType(),
		NestedPath: f.NestedPath(),
		Size:       s.MaxSize + 1,
		Order:      s.SortOrder,
		Interval:   s.Interval,
		Format:     s.Format,
	}
	if a.NestedPath != "" {
		a.Filter = nestedFilter
	}
	if a.Type == BucketCategory && len(include) > 0 {
		a.Include = include
		if len(include)+1 > a.Size {
			a.Size = len(include) + 1
		}
	}
	return a
}

// Source renders the aggregation, wrapped in nested and filter scopes when needed.
func (a Aggregation) Source() map[string]any {
	agg := a.bucketSource()
	if a.Filter != nil {
		agg = map[string]any{
			"filter": a.Filter.Source(),
			"aggs":   map[string]any{a.Name: agg},
		}
	}
	if a.NestedPath != "" {
		agg = map[string]any{
			"nested": map[string]any{"path": a.NestedPath},
			"aggs":   map[string]any{a.Name: agg},
		}
	}
	return agg
}

func (a Aggregation) bucketSource() map[string]any {
	switch a.Type {
	case BucketSlider:
		return map[string]any{"stats": map[string]any{"field": a.Field}}
	case BucketHistogram:
		return map[string]any{"histogram": map[string]any{
			"field":         a.Field,
			"interval":      a.Interval,
			"min_doc_count": 1,
		}}
	case BucketDateHistogram:
		body := map[string]any{
			"field":             a.Field,
			"calendar_interval": DateHistogramInterval,
			"min_doc_count":     1,
		}
		if a.Format != "" {
			body["format"] = a.Format
		}
		return map[string]any{"date_histogram": body}
	case BucketBoolean:
		return map[string]any{"terms": map[string]any{"field": a.Field, "size": 2}}
	default:
		body := map[string]any{"field": a.Field, "size": a.Size}
		switch a.Order {
		case SortCount:
			body["order"] = map[string]any{"_count": "desc"}
		case SortTerm:
			body["order"] = map[string]any{"_key": "asc"}
		}
		if len(a.Include) > 0 {
			include := make([]any, len(a.Include))
			for i, v := range a.Include {
				include[i] = v
			}
			body["include"] = include
		}
		return map[string]any{"terms": body}
	}
}

// Sources renders aggregations keyed by name.
func Sources(aggs []Aggregation) map[string]any {
	out := make(map[string]any, len(aggs))
	for _, a := range aggs {
		out[a.Name] = a.Source()
	}
	return out
}
