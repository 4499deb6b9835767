package facet

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gally-search/gally/internal/domain/mapping"
	"github.com/gally-search/gally/internal/domain/search/query"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestResolve_BuiltinDefaults(t *testing.T) {
	f := mapping.ReconstructField("color", mapping.Keyword, mapping.Props{Filterable: true})
	c := Resolve(f, nil, nil, nil)

	s := c.Settings()
	if s.CoverageRate != 90 || s.MaxSize != 10 || s.SortOrder != SortCount || s.DisplayMode != DisplayAuto {
		t.Errorf("unexpected built-in settings %+v", s)
	}
	if !c.IsVirtual() {
		t.Error("configuration without rows must be virtual")
	}
}

func TestResolve_CategoryRowOverridesDefault(t *testing.T) {
	f := mapping.ReconstructField("price.price", mapping.Price, mapping.Props{Filterable: true})
	cat := "cat_1"
	defaultRow := &Row{EntityType: "product", SourceField: "price.price", CoverageRate: intPtr(70), Position: intPtr(3)}
	catRow := &Row{EntityType: "product", SourceField: "price.price", CategoryID: &cat, CoverageRate: intPtr(50), MaxSize: intPtr(5)}

	c := Resolve(f, &cat, catRow, defaultRow)
	s := c.Settings()
	if s.CoverageRate != 50 || s.MaxSize != 5 {
		t.Errorf("category values not applied: %+v", s)
	}
	if s.Position != 3 {
		t.Errorf("Position = %d, want default row value 3", s.Position)
	}
	if s.SortOrder != SortCount {
		t.Errorf("SortOrder = %q, want built-in", s.SortOrder)
	}
	d := c.Defaults()
	if d.CoverageRate != 70 || d.MaxSize != 10 {
		t.Errorf("Defaults() = %+v", d)
	}
	if c.IsVirtual() {
		t.Error("category row exists: must not be virtual")
	}
}

func TestResolve_CategoryWithoutRowIsVirtual(t *testing.T) {
	f := mapping.ReconstructField("color", mapping.Keyword, mapping.Props{})
	cat := "cat_2"
	c := Resolve(f, &cat, nil, &Row{MaxSize: intPtr(4)})
	if !c.IsVirtual() || c.Settings().MaxSize != 4 {
		t.Errorf("virtual=%v settings=%+v", c.IsVirtual(), c.Settings())
	}
}

func TestRowValidate(t *testing.T) {
	bad := DisplayMode("sometimes")
	badOrder := SortOrder("random")
	neg := -1.0
	tests := []struct {
		name string
		row  Row
		want string
	}{
		{"missing keys", Row{}, "required"},
		{"display mode", Row{EntityType: "p", SourceField: "f", DisplayMode: &bad}, "display mode"},
		{"sort order", Row{EntityType: "p", SourceField: "f", SortOrder: &badOrder}, "sort order"},
		{"coverage", Row{EntityType: "p", SourceField: "f", CoverageRate: intPtr(101)}, "coverage rate"},
		{"max size", Row{EntityType: "p", SourceField: "f", MaxSize: intPtr(0)}, "max size"},
		{"interval", Row{EntityType: "p", SourceField: "f", Interval: &neg}, "interval"},
	}
	for _, tc := range tests {
		err := tc.row.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error = %v, want %q", tc.name, err, tc.want)
		}
	}
	if err := (Row{EntityType: "p", SourceField: "f", Format: strPtr("yyyy")}).Validate(); err != nil {
		t.Errorf("valid row rejected: %v", err)
	}
}

func TestBucketTypeFor(t *testing.T) {
	tests := []struct {
		ft       mapping.Type
		interval float64
		want     BucketType
	}{
		{mapping.Boolean, 0, BucketBoolean},
		{mapping.Stock, 0, BucketBoolean},
		{mapping.Price, 0, BucketSlider},
		{mapping.Integer, 50, BucketHistogram},
		{mapping.Float, 0, BucketSlider},
		{mapping.Date, 0, BucketDateHistogram},
		{mapping.Category, 0, BucketCategory},
		{mapping.Keyword, 0, BucketCheckbox},
		{mapping.Text, 0, BucketCheckbox},
		{mapping.Reference, 0, BucketCheckbox},
	}
	for _, tc := range tests {
		if got := BucketTypeFor(tc.ft, tc.interval); got != tc.want {
			t.Errorf("BucketTypeFor(%q, %v) = %q, want %q", tc.ft, tc.interval, got, tc.want)
		}
	}
}

func mustMapping(t *testing.T) *mapping.Mapping {
	t.Helper()
	m, err := mapping.New("product", []mapping.Field{
		mapping.ReconstructField("color", mapping.Text, mapping.Props{Filterable: true, UsedInAggregation: true}),
		mapping.ReconstructField("price", mapping.Nested, mapping.Props{}),
		mapping.ReconstructField("price.price", mapping.Price, mapping.Props{Filterable: true, UsedInAggregation: true}),
		mapping.ReconstructField("created_at", mapping.Date, mapping.Props{Filterable: true, UsedInAggregation: true}),
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func renderJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestAggregationSource_Checkbox(t *testing.T) {
	m := mustMapping(t)
	f, _ := m.Field("color")
	a := NewAggregation(Resolve(f, nil, nil, nil), nil, nil)

	want := `{"terms":{"field":"color.keyword","order":{"_count":"desc"},"size":11}}`
	if got := renderJSON(t, a.Source()); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestAggregationSource_NestedPriceHistogram(t *testing.T) {
	m := mustMapping(t)
	f, _ := m.Field("price.price")
	interval := 50.0
	c := Resolve(f, nil, nil, &Row{Interval: &interval})
	a := NewAggregation(c, nil, query.Term{Field: "price.group_id", Value: "0"})

	want := `{"aggs":{"price__price":{"aggs":{"price__price":{"histogram":{"field":"price.price","interval":50,"min_doc_count":1}}},` +
		`"filter":{"term":{"price.group_id":{"value":"0"}}}}},"nested":{"path":"price"}}`
	if got := renderJSON(t, a.Source()); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestAggregationSource_DateHistogram(t *testing.T) {
	m := mustMapping(t)
	f, _ := m.Field("created_at")
	a := NewAggregation(Resolve(f, nil, nil, nil), nil, nil)

	want := `{"date_histogram":{"calendar_interval":"1M","field":"created_at","format":"yyyy-MM","min_doc_count":1}}`
	if got := renderJSON(t, a.Source()); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestAggregationSource_CategoryInclude(t *testing.T) {
	f := mapping.ReconstructField("category_id", mapping.Category, mapping.Props{})
	a := NewAggregation(Resolve(f, nil, nil, &Row{MaxSize: intPtr(1)}), []string{"cat_2", "cat_3"}, nil)
	if a.Size != 3 {
		t.Errorf("Size = %d, want 3", a.Size)
	}
	got := renderJSON(t, a.Source())
	if !strings.Contains(got, `"include":["cat_2","cat_3"]`) {
		t.Errorf("include missing: %s", got)
	}
}

func decodeMap(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRead_CheckboxHasMoreBySize(t *testing.T) {
	f := mapping.ReconstructField("color", mapping.Keyword, mapping.Props{})
	c := Resolve(f, nil, nil, &Row{MaxSize: intPtr(2)})
	a := NewAggregation(c, nil, nil)

	raw := decodeMap(t, `{"buckets":[{"key":"red","doc_count":5},{"key":"blue","doc_count":3},{"key":"green","doc_count":1}]}`)
	got, ok := Read(a, c, raw, 9)
	if !ok {
		t.Fatal("facet must be shown")
	}
	if !got.HasMore || got.Count != 2 || len(got.Options) != 2 || got.Options[1].Value != "blue" {
		t.Errorf("unexpected facet %+v", got)
	}
}

func TestRead_CheckboxHasMoreByCoverage(t *testing.T) {
	f := mapping.ReconstructField("color", mapping.Keyword, mapping.Props{})
	c := Resolve(f, nil, nil, nil)
	a := NewAggregation(c, nil, nil)

	raw := decodeMap(t, `{"buckets":[{"key":"red","doc_count":5},{"key":"blue","doc_count":3}]}`)

	// 8 of 10 documents covered: 80% < 90%.
	got, _ := Read(a, c, raw, 10)
	if !got.HasMore {
		t.Error("expected hasMore when coverage is below the rate")
	}

	// 8 of 8 documents covered.
	got, _ = Read(a, c, raw, 8)
	if got.HasMore {
		t.Error("unexpected hasMore at full coverage")
	}
}

func TestRead_NestedHistogram(t *testing.T) {
	m := mustMapping(t)
	f, _ := m.Field("price.price")
	interval := 10.0
	c := Resolve(f, nil, nil, &Row{Interval: &interval})
	a := NewAggregation(c, nil, query.Term{Field: "price.group_id", Value: "0"})

	raw := decodeMap(t, `{"doc_count":4,"price__price":{"doc_count":4,"price__price":{"buckets":[{"key":10,"doc_count":3},{"key":30,"doc_count":1}]}}}`)
	got, ok := Read(a, c, raw, 4)
	if !ok || len(got.Options) != 2 {
		t.Fatalf("unexpected facet %+v", got)
	}
	if got.Options[0].Value != "10-20" || got.Options[1].Value != "30-40" {
		t.Errorf("histogram values = %+v", got.Options)
	}
	if got.HasMore {
		t.Error("histograms never report hasMore")
	}
}

func TestRead_Slider(t *testing.T) {
	f := mapping.ReconstructField("size", mapping.Integer, mapping.Props{})
	c := Resolve(f, nil, nil, nil)
	a := NewAggregation(c, nil, nil)

	got, ok := Read(a, c, decodeMap(t, `{"count":3,"min":1,"max":12,"avg":5,"sum":15}`), 3)
	if !ok || got.Min == nil || *got.Min != 1 || *got.Max != 12 || got.Count != 3 {
		t.Errorf("unexpected slider %+v", got)
	}

	if _, ok := Read(a, c, decodeMap(t, `{"count":0}`), 0); ok {
		t.Error("empty auto slider must be hidden")
	}
}

func TestRead_BooleanAndDisplayMode(t *testing.T) {
	f := mapping.ReconstructField("is_new", mapping.Boolean, mapping.Props{})
	displayed := DisplayDisplayed
	c := Resolve(f, nil, nil, &Row{DisplayMode: &displayed})
	a := NewAggregation(c, nil, nil)

	got, ok := Read(a, c, decodeMap(t, `{"buckets":[{"key":1,"key_as_string":"true","doc_count":2}]}`), 5)
	if !ok || got.Options[0].Value != "true" {
		t.Errorf("unexpected boolean facet %+v", got)
	}

	if _, ok := Read(a, c, decodeMap(t, `{"buckets":[]}`), 0); !ok {
		t.Error("displayed facet must be shown even without options")
	}

	auto := Resolve(f, nil, nil, nil)
	if _, ok := Read(a, auto, decodeMap(t, `{"buckets":[]}`), 0); ok {
		t.Error("empty auto facet must be hidden")
	}
}

func TestSources(t *testing.T) {
	m := mustMapping(t)
	var aggs []Aggregation
	for _, f := range m.AggregableFields() {
		aggs = append(aggs, NewAggregation(Resolve(f, nil, nil, nil), nil, nil))
	}
	got := Sources(aggs)
	for _, name := range []string{"color", "price__price", "created_at"} {
		if _, ok := got[name]; !ok {
			t.Errorf("aggregation %q missing", name)
		}
	}
}
