package query

import (
	"encoding/json"
	"testing"
)

func render(t *testing.T, n Node) string {
	t.Helper()
	b, err := json.Marshal(n.Source())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestSource(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"match_all", MatchAll{}, `{"match_all":{}}`},
		{"term", Term{Field: "sku.keyword", Value: "24-MB03"}, `{"term":{"sku.keyword":{"value":"24-MB03"}}}`},
		{"terms", Terms{Field: "color", Values: []any{"red", "blue"}}, `{"terms":{"color":["red","blue"]}}`},
		{"match", Match{Field: "name", Query: "bag", Operator: "and"}, `{"match":{"name":{"operator":"and","query":"bag"}}}`},
		{"exists", Exists{Field: "size"}, `{"exists":{"field":"size"}}`},
		{"range", Range{Field: "size", Gte: 350.0, Lte: 400.0}, `{"range":{"size":{"gte":350,"lte":400}}}`},
		{
			"range with format",
			Range{Field: "created_at", Gt: "2024-01", Format: "yyyy-MM-dd||yyyy-MM||yyyy"},
			`{"range":{"created_at":{"format":"yyyy-MM-dd||yyyy-MM||yyyy","gt":"2024-01"}}}`,
		},
		{
			"multi_match",
			MultiMatch{Query: "bag", Fields: []string{"name^10", "sku^5"}, Type: "best_fields", Operator: "and"},
			`{"multi_match":{"fields":["name^10","sku^5"],"operator":"and","query":"bag","type":"best_fields"}}`,
		},
		{
			"nested",
			Nested{Path: "price", Query: Term{Field: "price.group_id", Value: "0"}},
			`{"nested":{"path":"price","query":{"term":{"price.group_id":{"value":"0"}}}}}`,
		},
		{
			"bool",
			Bool{
				Must:               []Node{Exists{Field: "a"}},
				Should:             []Node{Exists{Field: "b"}},
				MustNot:            []Node{Exists{Field: "c"}},
				MinimumShouldMatch: 1,
			},
			`{"bool":{"minimum_should_match":1,"must":[{"exists":{"field":"a"}}],` +
				`"must_not":[{"exists":{"field":"c"}}],"should":[{"exists":{"field":"b"}}]}}`,
		},
		{"empty bool", Bool{}, `{"bool":{}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := render(t, tc.node); got != tc.want {
				t.Errorf("got  %s\nwant %s", got, tc.want)
			}
		})
	}
}

func TestAnd(t *testing.T) {
	if And() != nil {
		t.Error("And() should be nil")
	}
	one := Exists{Field: "a"}
	if And(one) != Node(one) {
		t.Error("And(x) should be x")
	}
	b, ok := And(one, Exists{Field: "b"}).(Bool)
	if !ok || len(b.Must) != 2 {
		t.Errorf("And(x, y) = %#v", b)
	}
}
