package filter

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gally-search/gally/internal/domain"
	"github.com/gally-search/gally/internal/domain/mapping"
	domfilter "github.com/gally-search/gally/internal/domain/search/filter"
	"github.com/gally-search/gally/internal/domain/search/query"
)

func testMapping(t *testing.T) *mapping.Mapping {
	t.Helper()
	fields := []mapping.Field{
		mapping.ReconstructField("sku", mapping.Keyword, mapping.Props{Filterable: true, Searchable: true}),
		mapping.ReconstructField("name", mapping.Text, mapping.Props{Filterable: true, Searchable: true}),
		mapping.ReconstructField("description", mapping.Text, mapping.Props{Searchable: true}),
		mapping.ReconstructField("size", mapping.Integer, mapping.Props{Filterable: true, Sortable: true}),
		mapping.ReconstructField("is_active", mapping.Boolean, mapping.Props{Filterable: true}),
		mapping.ReconstructField("created_at", mapping.Date, mapping.Props{Filterable: true}),
		mapping.ReconstructField("category", mapping.Category, mapping.Props{Filterable: true}),
		mapping.ReconstructField("price", mapping.Nested, mapping.Props{}),
		mapping.ReconstructField("price.price", mapping.Price, mapping.Props{Filterable: true, Sortable: true}),
		mapping.ReconstructField("price.group_id", mapping.Keyword, mapping.Props{Filterable: true}),
		mapping.ReconstructField("manufacture_location", mapping.GeoPoint, mapping.Props{Filterable: true}),
	}
	m, err := mapping.New("product", fields)
	if err != nil {
		t.Fatalf("mapping.New: %v", err)
	}
	return m
}

func parse(t *testing.T, raw string) []domfilter.Node {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	var (
		nodes []domfilter.Node
		err   error
	)
	switch x := v.(type) {
	case []any:
		nodes, err = domfilter.ParseList(x)
	case map[string]any:
		nodes, err = domfilter.Parse(x)
	}
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return nodes
}

func render(t *testing.T, n query.Node) string {
	t.Helper()
	if n == nil {
		return "null"
	}
	b, err := json.Marshal(n.Source())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestBuild(t *testing.T) {
	m := testMapping(t)
	tests := []struct {
		name   string
		filter string
		scope  Scope
		want   string
	}{
		{
			name:   "eq on keyword",
			filter: `[{"sku": {"eq": "24-MB03"}}]`,
			want:   `{"term":{"sku":{"value":"24-MB03"}}}`,
		},
		{
			name:   "eq on text uses exact path",
			filter: `[{"name": {"eq": "Bag"}}]`,
			want:   `{"term":{"name.keyword":{"value":"Bag"}}}`,
		},
		{
			name:   "match",
			filter: `[{"name": {"match": "bag"}}]`,
			want:   `{"match":{"name":{"operator":"and","query":"bag"}}}`,
		},
		{
			name:   "in on keyword",
			filter: `[{"sku": {"in": ["a", "b"]}}]`,
			want:   `{"terms":{"sku":["a","b"]}}`,
		},
		{
			name:   "hyphen range on eq",
			filter: `[{"size": {"eq": "10-*"}}]`,
			want:   `{"range":{"size":{"gte":10}}}`,
		},
		{
			name:   "in mixing values and ranges",
			filter: `[{"size": {"in": ["1-5", 8]}}]`,
			want:   `{"bool":{"minimum_should_match":1,"should":[{"terms":{"size":[8]}},{"range":{"size":{"gte":1,"lte":5}}}]}}`,
		},
		{
			name:   "range bounds",
			filter: `[{"size": {"gt": 2, "lte": "9"}}]`,
			want:   `{"range":{"size":{"gt":2,"lte":9}}}`,
		},
		{
			name:   "exist false",
			filter: `[{"sku": {"exist": false}}]`,
			want:   `{"bool":{"must_not":[{"exists":{"field":"sku"}}]}}`,
		},
		{
			name:   "boolean eq",
			filter: `[{"is_active": {"eq": "true"}}]`,
			want:   `{"term":{"is_active":{"value":true}}}`,
		},
		{
			name:   "date eq",
			filter: `[{"created_at": {"eq": "2024-01"}}]`,
			want:   `{"range":{"created_at":{"format":"yyyy-MM-dd||yyyy-MM||yyyy","gte":"2024-01","lte":"2024-01"}}}`,
		},
		{
			name:   "category eq",
			filter: `[{"category": {"eq": "cat_1"}}]`,
			want:   `{"term":{"category":{"value":"cat_1"}}}`,
		},
		{
			name:   "nested price with group",
			filter: `[{"price__price": {"gte": 10}}]`,
			scope:  Scope{PriceGroupID: "0"},
			want:   `{"nested":{"path":"price","query":{"bool":{"must":[{"range":{"price.price":{"gte":10}}},{"term":{"price.group_id":{"value":"0"}}}]}}}}`,
		},
		{
			name:   "nested leaf inside its own scope",
			filter: `[{"price__price": {"gte": 10}}]`,
			scope:  Scope{InsideNested: "price"},
			want:   `{"range":{"price.price":{"gte":10}}}`,
		},
		{
			name:   "top level conjunction",
			filter: `[{"sku": {"eq": "a"}}, {"size": {"eq": 3}}]`,
			want:   `{"bool":{"must":[{"term":{"sku":{"value":"a"}}},{"term":{"size":{"value":3}}}]}}`,
		},
		{
			name:   "should group",
			filter: `[{"_should": [{"sku": {"eq": "a"}}, {"sku": {"eq": "b"}}]}]`,
			want:   `{"bool":{"minimum_should_match":1,"should":[{"term":{"sku":{"value":"a"}}},{"term":{"sku":{"value":"b"}}}]}}`,
		},
		{
			name:   "not group",
			filter: `[{"_not": [{"sku": {"eq": "a"}}]}]`,
			want:   `{"bool":{"must_not":[{"term":{"sku":{"value":"a"}}}]}}`,
		},
		{
			name:   "empty",
			filter: `[]`,
			want:   `null`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Build(m, tc.scope, parse(t, tc.filter))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got := render(t, q); got != tc.want {
				t.Errorf("got  %s\nwant %s", got, tc.want)
			}
		})
	}
}

func TestBuild_UnknownField(t *testing.T) {
	m := testMapping(t)
	_, err := Build(m, Scope{}, parse(t, `[{"skuu": {"eq": "a"}}]`))
	var fe *domain.InvalidFilterFieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected InvalidFilterFieldError, got %v", err)
	}
	if fe.Suggestion != "sku" {
		t.Errorf("Suggestion = %q, want sku", fe.Suggestion)
	}
	if !errors.Is(err, domain.ErrInvalidFilterField) {
		t.Error("expected ErrInvalidFilterField")
	}
}

func TestBuild_NotFilterable(t *testing.T) {
	m := testMapping(t)
	_, err := Build(m, Scope{}, parse(t, `[{"description": {"eq": "a"}}]`))
	want := "The filter field 'description' is not filterable."
	if err == nil || err.Error() != want {
		t.Fatalf("err = %v, want %q", err, want)
	}
}

func TestBuild_OperatorCombinations(t *testing.T) {
	m := testMapping(t)
	tests := []struct {
		filter string
		want   string
	}{
		{`[{"sku": {"eq": "a", "in": ["b"]}}]`, "Filter argument sku: Only 'eq', 'in', 'match' or 'exist' should be filled."},
		{`[{"is_active": {"eq": true, "exist": true}}]`, "Filter argument is_active: Only 'eq' or 'exist' should be filled."},
		{`[{"is_active": {"match": "x"}}]`, "Filter argument is_active: Operator 'match' is not supported for this field."},
		{`[{"size": {"gt": 1, "gte": 2}}]`, "Filter argument size: Do not use 'gt' and 'gte' in the same filter."},
		{`[{"size": {"lt": 1, "lte": 2}}]`, "Filter argument size: Do not use 'lt' and 'lte' in the same filter."},
		{`[{"size": {"eq": 1, "gt": 2}}]`, "Filter argument size: Only one of 'eq', 'in', 'exist' or range operators should be filled."},
		{`[{"created_at": {"in": ["2024"]}}]`, "Filter argument created_at: Operator 'in' is not supported for this field."},
		{`[{"category": {"exist": true}}]`, "Filter argument category: Operator 'exist' is not supported for this field."},
		{`[{"sku": {"eq": null}}]`, "Filter argument sku: Only 'eq', 'in', 'match' or 'exist' should be filled."},
	}
	for _, tc := range tests {
		_, err := Build(m, Scope{}, parse(t, tc.filter))
		if !errors.Is(err, domain.ErrInvalidOperatorCombination) {
			t.Errorf("%s: expected ErrInvalidOperatorCombination, got %v", tc.filter, err)
			continue
		}
		if err.Error() != tc.want {
			t.Errorf("%s:\n got  %q\n want %q", tc.filter, err.Error(), tc.want)
		}
	}
}

func TestBuild_InvalidDate(t *testing.T) {
	m := testMapping(t)
	_, err := Build(m, Scope{}, parse(t, `[{"created_at": {"gte": "01/2024"}}]`))
	var de *domain.InvalidDateFormatError
	if !errors.As(err, &de) {
		t.Fatalf("expected InvalidDateFormatError, got %v", err)
	}
	if de.Operator != "gte" || de.Value != "01/2024" {
		t.Errorf("unexpected error fields: %+v", de)
	}
}

func TestBuild_InvalidOperands(t *testing.T) {
	m := testMapping(t)
	for _, raw := range []string{
		`[{"size": {"eq": "abc"}}]`,
		`[{"size": {"in": []}}]`,
		`[{"size": {"eq": "*-*"}}]`,
		`[{"sku": {"exist": "maybe"}}]`,
		`[{"name": {"match": ""}}]`,
	} {
		_, err := Build(m, Scope{}, parse(t, raw))
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("%s: expected ErrInvalidRequest, got %v", raw, err)
		}
	}
}
