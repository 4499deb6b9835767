package search

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gally-search/gally/internal/db"
	"github.com/gally-search/gally/internal/db/memory"
	"github.com/gally-search/gally/internal/domain"
	"github.com/gally-search/gally/internal/domain/catalog"
	domfacet "github.com/gally-search/gally/internal/domain/facet"
	"github.com/gally-search/gally/internal/domain/mapping"
	"github.com/gally-search/gally/internal/domain/search/filter"
	"github.com/gally-search/gally/internal/domain/search/request"
	"github.com/gally-search/gally/internal/domain/search/result"
	"github.com/gally-search/gally/internal/domain/search/sorting"
	"github.com/gally-search/gally/internal/metrics"
	"github.com/gally-search/gally/internal/usecase/facet"
	"github.com/gally-search/gally/internal/usecase/sortorder"
)

// --- mocks ---

type mockResolver struct {
	m *mapping.Mapping
}

func (r *mockResolver) ResolveMapping(_ context.Context, entityType string) (*mapping.Mapping, error) {
	if entityType != r.m.EntityType() {
		return nil, &domain.UnknownEntityError{EntityType: entityType}
	}
	return r.m, nil
}

type mockCatalogs struct{}

func (mockCatalogs) Resolve(_ context.Context, idOrCode string) (catalog.LocalizedCatalog, error) {
	switch idOrCode {
	case "1", "b2c_fr":
		return catalog.Reconstruct("1", "b2c_fr", "B2C French", "fr_FR", "b2c"), nil
	case "2", "b2c_en":
		return catalog.Reconstruct("2", "b2c_en", "B2C English", "en_US", "b2c"), nil
	}
	return catalog.LocalizedCatalog{}, &domain.MissingLocalizedCatalogError{Catalog: idOrCode}
}

type mockCategories struct{}

func (mockCategories) Exists(_ context.Context, id string) (bool, error) {
	return id == "cat_1" || id == "cat_2", nil
}

func (mockCategories) Children(_ context.Context, id string) ([]string, error) {
	if id == "" {
		return []string{"cat_1", "cat_2"}, nil
	}
	return nil, nil
}

type emptyConfigs struct{}

func (emptyConfigs) FindByEntityAndCategory(context.Context, string, *string) ([]domfacet.Row, error) {
	return nil, nil
}

func (emptyConfigs) Upsert(context.Context, domfacet.Row) error { return nil }

// recordingEngine counts calls and keeps the last body.
type recordingEngine struct {
	next  Engine
	calls int
	index string
	body  []byte
}

func (e *recordingEngine) Search(ctx context.Context, index string, body []byte) (*db.SearchResponse, error) {
	e.calls++
	e.index, e.body = index, body
	return e.next.Search(ctx, index, body)
}

// --- fixtures ---

func productMapping(t *testing.T) *mapping.Mapping {
	t.Helper()
	m, err := mapping.New("product", []mapping.Field{
		mapping.ReconstructField("id", mapping.Keyword, mapping.Props{Sortable: true}),
		mapping.ReconstructField("sku", mapping.Keyword, mapping.Props{Searchable: true, Filterable: true}),
		mapping.ReconstructField("name", mapping.Text, mapping.Props{
			Label: "Name", Searchable: true, Filterable: true, Sortable: true, Weight: 2,
		}),
		mapping.ReconstructField("size", mapping.Integer, mapping.Props{
			Label: "Size", Filterable: true, Sortable: true, UsedInAggregation: true,
		}),
		mapping.ReconstructField("color", mapping.Keyword, mapping.Props{
			Label: "Color", Filterable: true, UsedInAggregation: true,
		}),
		mapping.ReconstructField("category", mapping.Nested, mapping.Props{}),
		mapping.ReconstructField("category.id", mapping.Category, mapping.Props{
			Label: "Category", Filterable: true, UsedInAggregation: true,
		}),
		mapping.ReconstructField("price", mapping.Nested, mapping.Props{}),
		mapping.ReconstructField("price.price", mapping.Price, mapping.Props{
			Label: "Price", Filterable: true, Sortable: true, UsedInAggregation: true,
		}),
		mapping.ReconstructField("price.group_id", mapping.Keyword, mapping.Props{Filterable: true}),
		mapping.ReconstructField("manufacture_location", mapping.GeoPoint, mapping.Props{Filterable: true, Sortable: true}),
	})
	if err != nil {
		t.Fatalf("mapping.New: %v", err)
	}
	return m
}

func product(sku, name string, size any, color, cat string, price float64, loc any) map[string]any {
	src := map[string]any{
		"sku":      sku,
		"name":     name,
		"color":    color,
		"category": []any{map[string]any{"id": cat}},
		"price": []any{
			map[string]any{"price": price, "group_id": "0"},
			map[string]any{"price": price - 5, "group_id": "1"},
		},
	}
	if size != nil {
		src["size"] = size
	}
	if loc != nil {
		src["manufacture_location"] = loc
	}
	return src
}

func productEngine() *memory.Engine {
	e := memory.New()
	e.Index("gally_b2c_fr_product",
		memory.Document{ID: "p_02", Source: product("24-MB02", "Fusion Backpack", 3, "red", "cat_1", 59, nil)},
		memory.Document{ID: "p_03", Source: product("24-MB03", "Crown Summit Backpack", 4, "red", "cat_1", 38,
			map[string]any{"lat": 44.84, "lon": -0.58})},
		memory.Document{ID: "p_04", Source: product("24-MB04", "Strive Shoulder Pack", 4, "blue", "cat_1", 32, nil)},
		memory.Document{ID: "p_05", Source: product("24-MB05", "Wayfarer Messenger Bag", 2, "blue", "cat_1", 45, nil)},
		memory.Document{ID: "p_06", Source: product("24-MB06", "Rival Field Messenger", 5, "green", "cat_2", 45,
			map[string]any{"lat": 45.764, "lon": 4.8357})},
		memory.Document{ID: "p_07", Source: product("24-UB02", "Impulse Duffle", 6, "red", "cat_2", 74,
			map[string]any{"lat": 48.8566, "lon": 2.3522})},
		memory.Document{ID: "p_09", Source: product("24-WB01", "Voyage Yoga Bag", 6, "green", "cat_2", 32, nil)},
		memory.Document{ID: "p_10", Source: product("24-WB02", "Compete Track Tote", 1, "red", "cat_2", 32, nil)},
		memory.Document{ID: "p_11", Source: product("24-WB03", "Driven Backpack", 3, "blue", "cat_2", 36, nil)},
		memory.Document{ID: "1", Source: product("24-WG01", "Bolo Sport Watch", nil, "red", "cat_1", 49, nil)},
	)
	return e
}

type fixture struct {
	svc    *Service
	engine *recordingEngine
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	resolver := &mockResolver{m: productMapping(t)}
	engine := &recordingEngine{next: productEngine()}
	svc := New(
		resolver, mockCatalogs{}, mockCategories{},
		sortorder.New(resolver),
		facet.New(resolver, emptyConfigs{}, mockCategories{}),
		engine,
	).WithIndexPrefix("gally")
	return fixture{svc: svc, engine: engine}
}

// --- helpers ---

func filters(t *testing.T, raw string) []filter.Node {
	t.Helper()
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	nodes, err := filter.Parse(obj)
	if err != nil {
		t.Fatalf("filter.Parse(%s): %v", raw, err)
	}
	return nodes
}

func sorts(t *testing.T, raw string) []sorting.Spec {
	t.Helper()
	specs, err := sorting.DecodeSpecs([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeSpecs(%s): %v", raw, err)
	}
	return specs
}

func newRequest(t *testing.T, p request.Params) *request.Context {
	t.Helper()
	if p.EntityType == "" {
		p.EntityType = "product"
	}
	if p.Catalog == "" {
		p.Catalog = "b2c_fr"
	}
	req, err := request.New(p, request.Limits{})
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

func itemIDs(items []result.Item) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID()
	}
	return out
}

// --- tests ---

func TestSearch_SkuFilter(t *testing.T) {
	f := newFixture(t)
	req := newRequest(t, request.Params{Filters: filters(t, `{"sku": {"eq": "24-MB03"}}`)})

	page, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := itemIDs(page.Items); !reflect.DeepEqual(got, []string{"p_03"}) {
		t.Fatalf("items = %v, want [p_03]", got)
	}
	if page.Items[0].Source()["sku"] != "24-MB03" {
		t.Errorf("source = %v", page.Items[0].Source())
	}
	want := result.Pagination{LastPage: 1, TotalCount: 1, ItemsPerPage: 30, CurrentPage: 1}
	if page.Pagination != want {
		t.Errorf("pagination = %+v", page.Pagination)
	}
	if !reflect.DeepEqual(page.SortInfo.Current, []sorting.Current{{Field: "_score", Direction: sorting.Desc}}) {
		t.Errorf("sort info = %+v", page.SortInfo.Current)
	}
	if f.engine.index != "gally_b2c_fr_product" {
		t.Errorf("index = %q", f.engine.index)
	}
}

func TestSearch_CatalogByID(t *testing.T) {
	f := newFixture(t)
	page, err := f.svc.Search(context.Background(), newRequest(t, request.Params{Catalog: "1"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Pagination.TotalCount != 10 {
		t.Errorf("total = %d, want 10", page.Pagination.TotalCount)
	}
}

func TestSearch_SizeSortOrdering(t *testing.T) {
	tests := []struct {
		sort string
		want []string
	}{
		{
			sort: `{"size": "asc"}`,
			want: []string{"p_10", "p_05", "p_11", "p_02", "p_04", "p_03", "p_06", "p_09", "p_07", "1"},
		},
		{
			sort: `{"size": "DESC"}`,
			want: []string{"1", "p_07", "p_09", "p_06", "p_03", "p_04", "p_02", "p_11", "p_05", "p_10"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.sort, func(t *testing.T) {
			f := newFixture(t)
			page, err := f.svc.Search(context.Background(), newRequest(t, request.Params{Sort: sorts(t, tc.sort)}))
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got := itemIDs(page.Items); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("items = %v, want %v", got, tc.want)
			}
			if page.SortInfo.Current[0].Field != "size" {
				t.Errorf("current sort = %+v", page.SortInfo.Current)
			}
		})
	}
}

func TestSearch_Pagination(t *testing.T) {
	f := newFixture(t)
	req := newRequest(t, request.Params{Sort: sorts(t, `{"size": "asc"}`), Page: 3, PageSize: 4})

	page, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := itemIDs(page.Items); !reflect.DeepEqual(got, []string{"p_07", "1"}) {
		t.Errorf("items = %v, want [p_07 1]", got)
	}
	if page.Pagination.LastPage != 3 || page.Pagination.CurrentPage != 3 || page.Pagination.ItemsPerPage != 4 {
		t.Errorf("pagination = %+v", page.Pagination)
	}
}

func TestSearch_TextQuery(t *testing.T) {
	f := newFixture(t)
	page, err := f.svc.Search(context.Background(), newRequest(t, request.Params{Text: "backpack"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := itemIDs(page.Items); !reflect.DeepEqual(got, []string{"p_11", "p_03", "p_02"}) {
		t.Errorf("items = %v", got)
	}
	if page.Items[0].Score() != 2 {
		t.Errorf("score = %v, want 2", page.Items[0].Score())
	}
}

func TestTextQuery(t *testing.T) {
	noText, err := mapping.New("cms_page", []mapping.Field{
		mapping.ReconstructField("code", mapping.Keyword, mapping.Props{Filterable: true}),
	})
	if err != nil {
		t.Fatalf("mapping.New: %v", err)
	}
	tests := []struct {
		name string
		m    *mapping.Mapping
		text string
		want string
	}{
		{"empty text", productMapping(t), "", `{"match_all":{}}`},
		{"no searchable field", noText, "bag", `{"bool":{"must_not":[{"match_all":{}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := json.Marshal(textQuery(tt.m, tt.text).Source())
			if string(got) != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestSearch_CurrentCategory(t *testing.T) {
	f := newFixture(t)
	page, err := f.svc.Search(context.Background(), newRequest(t, request.Params{CategoryID: "cat_1"}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"p_05", "p_04", "p_03", "p_02", "1"}
	if got := itemIDs(page.Items); !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}

func TestSearch_PriceGroupScopesFilter(t *testing.T) {
	tests := []struct {
		group string
		want  []string
	}{
		{"0", []string{"p_07", "p_06", "p_05", "p_02", "1"}},
		{"1", []string{"p_07", "p_02"}},
	}
	for _, tc := range tests {
		t.Run("group "+tc.group, func(t *testing.T) {
			f := newFixture(t)
			req := newRequest(t, request.Params{
				PriceGroupID: tc.group,
				Filters:      filters(t, `{"price__price": {"gte": 45}}`),
			})
			page, err := f.svc.Search(context.Background(), req)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got := itemIDs(page.Items); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("items = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSearch_GeoDistanceFromContext(t *testing.T) {
	f := newFixture(t)
	req := newRequest(t, request.Params{
		ReferenceLocation: "44.832196, -0.554729",
		Filters:           filters(t, `{"manufacture_location": {"exist": true}}`),
		Sort:              sorts(t, `{"manufacture_location": "asc"}`),
	})
	page, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := itemIDs(page.Items); !reflect.DeepEqual(got, []string{"p_03", "p_06", "p_07"}) {
		t.Errorf("items = %v, want nearest first", got)
	}
}

func TestAssemble_Body(t *testing.T) {
	f := newFixture(t)
	req := newRequest(t, request.Params{Filters: filters(t, `{"sku": {"eq": "24-MB03"}}`)})

	native, err := f.svc.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	body, err := native.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	want := `{"from":0,"query":{"bool":{"filter":[{"term":{"sku":{"value":"24-MB03"}}}],"must":[{"match_all":{}}]}},` +
		`"size":30,"sort":[{"_score":{"order":"desc"}},{"id":{"missing":"_first","order":"desc"}}],"track_total_hits":true}`
	if string(body) != want {
		t.Errorf("body:\n got %s\nwant %s", body, want)
	}
	if f.engine.calls != 0 {
		t.Errorf("Assemble must not call the engine, got %d calls", f.engine.calls)
	}
}

func TestAssemble_TextAndCategory(t *testing.T) {
	f := newFixture(t)
	req := newRequest(t, request.Params{Text: "yoga bag", CategoryID: "cat_2"})

	native, err := f.svc.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	b, err := json.Marshal(native.Query.Source())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"bool":{"filter":[{"nested":{"path":"category","query":{"term":{"category.id":{"value":"cat_2"}}}}}],` +
		`"must":[{"multi_match":{"fields":["name^2","sku^1"],"operator":"and","query":"yoga bag","type":"best_fields"}}]}}`
	if string(b) != want {
		t.Errorf("query:\n got %s\nwant %s", b, want)
	}
}

func TestSearch_ValidationPrecedesEngine(t *testing.T) {
	tests := []struct {
		name   string
		params request.Params
		target error
	}{
		{"unknown catalog", request.Params{Catalog: "b2b_de"}, domain.ErrMissingLocalizedCatalog},
		{"unknown entity", request.Params{EntityType: "cms_page"}, domain.ErrUnknownEntity},
		{"unknown category", request.Params{CategoryID: "cat_404"}, domain.ErrCategoryNotFound},
		{"unknown filter field", request.Params{Filters: filters(t, `{"skus": {"eq": "x"}}`)}, domain.ErrInvalidFilterField},
		{"operator combination", request.Params{Filters: filters(t, `{"size": {"gt": 1, "gte": 2}}`)}, domain.ErrInvalidOperatorCombination},
		{"unknown sort field", request.Params{Sort: sorts(t, `{"sizes": "asc"}`)}, domain.ErrInvalidSortField},
		{"multi sort", request.Params{Sort: sorts(t, `{"size": "asc", "name": "asc"}`)}, domain.ErrMultiSortNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Search(context.Background(), newRequest(t, tc.params))
			if !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}
			if f.engine.calls != 0 {
				t.Errorf("engine called %d times", f.engine.calls)
			}
		})
	}
}

func TestSearch_UnknownFilterFieldSuggestion(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Search(context.Background(), newRequest(t, request.Params{
		Filters: filters(t, `{"skus": {"eq": "24-MB03"}}`),
	}))
	var fieldErr *domain.InvalidFilterFieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected InvalidFilterFieldError, got %v", err)
	}
	if fieldErr.Error() != "The filter field 'skus' does not exist. Did you mean 'sku'?" {
		t.Errorf("message = %q", fieldErr.Error())
	}
}

func TestSearch_EngineError(t *testing.T) {
	f := newFixture(t)
	before := testutil.ToFloat64(metrics.EngineErrorsTotal.WithLabelValues("product", "index_not_found"))

	_, err := f.svc.Search(context.Background(), newRequest(t, request.Params{Catalog: "b2c_en"}))
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
	if f.engine.index != "gally_b2c_en_product" {
		t.Errorf("index = %q", f.engine.index)
	}
	after := testutil.ToFloat64(metrics.EngineErrorsTotal.WithLabelValues("product", "index_not_found"))
	if after != before+1 {
		t.Errorf("engine errors = %v, want %v", after, before+1)
	}
}

func TestSearch_CountsRequests(t *testing.T) {
	f := newFixture(t)
	ok := metrics.SearchRequestsTotal.WithLabelValues("product", "ok")
	invalid := metrics.SearchRequestsTotal.WithLabelValues("product", "invalid")
	okBefore, invalidBefore := testutil.ToFloat64(ok), testutil.ToFloat64(invalid)

	if _, err := f.svc.Search(context.Background(), newRequest(t, request.Params{})); err != nil {
		t.Fatalf("Search: %v", err)
	}
	_, _ = f.svc.Search(context.Background(), newRequest(t, request.Params{CategoryID: "cat_404"}))

	if testutil.ToFloat64(ok) != okBefore+1 {
		t.Error("successful search not counted")
	}
	if testutil.ToFloat64(invalid) != invalidBefore+1 {
		t.Error("invalid search not counted")
	}
}

func TestSearch_Facets(t *testing.T) {
	f := newFixture(t)
	req := newRequest(t, request.Params{WithFacets: true, PriceGroupID: "0"})

	page, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	var names []string
	byName := map[string]domfacet.Facet{}
	for _, a := range page.Aggregations {
		names = append(names, a.Field)
		byName[a.Field] = a
	}
	if !reflect.DeepEqual(names, []string{"category__id", "color", "price__price", "size"}) {
		t.Fatalf("facets = %v", names)
	}

	color := byName["color"]
	wantColor := []domfacet.Option{{Value: "red", Count: 5}, {Value: "blue", Count: 3}, {Value: "green", Count: 2}}
	if !reflect.DeepEqual(color.Options, wantColor) || color.HasMore || color.Type != domfacet.BucketCheckbox {
		t.Errorf("color facet = %+v", color)
	}

	if c := byName["category__id"]; len(c.Options) != 2 {
		t.Errorf("category facet = %+v", c)
	}

	price := byName["price__price"]
	if price.Min == nil || price.Max == nil || *price.Min != 32 || *price.Max != 74 {
		t.Errorf("price facet = %+v", price)
	}
	size := byName["size"]
	if size.Min == nil || *size.Min != 1 || *size.Max != 6 {
		t.Errorf("size facet = %+v", size)
	}
}

func TestSearch_FacetsAtLeafCategory(t *testing.T) {
	f := newFixture(t)
	req := newRequest(t, request.Params{CategoryID: "cat_1", WithFacets: true})

	page, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, a := range page.Aggregations {
		if a.Field == "category__id" {
			t.Errorf("category facet under a leaf category = %+v", a)
		}
	}

	var body map[string]any
	if err := json.Unmarshal(f.engine.body, &body); err != nil {
		t.Fatal(err)
	}
	aggs, _ := body["aggs"].(map[string]any)
	if _, ok := aggs["category__id"]; ok {
		t.Errorf("category aggregation requested under a leaf category: %v", aggs["category__id"])
	}
	if aggs["color"] == nil {
		t.Errorf("aggs = %v", aggs)
	}
}

func TestViewMoreOptions_LeafCategory(t *testing.T) {
	f := newFixture(t)
	req := newRequest(t, request.Params{CategoryID: "cat_1"})

	got, err := f.svc.ViewMoreOptions(context.Background(), req, "category__id")
	if err != nil {
		t.Fatalf("ViewMoreOptions: %v", err)
	}
	if got.Field != "category__id" || got.Type != domfacet.BucketCategory || len(got.Options) != 0 {
		t.Errorf("facet = %+v", got)
	}
	if f.engine.calls != 0 {
		t.Errorf("engine called %d times", f.engine.calls)
	}
}

func TestViewMoreOptions(t *testing.T) {
	f := newFixture(t)
	req := newRequest(t, request.Params{Filters: filters(t, `{"size": {"gte": 4}}`)})

	got, err := f.svc.ViewMoreOptions(context.Background(), req, "color")
	if err != nil {
		t.Fatalf("ViewMoreOptions: %v", err)
	}
	// p_03, p_04, p_06, p_07, p_09
	want := []domfacet.Option{{Value: "green", Count: 2}, {Value: "red", Count: 2}, {Value: "blue", Count: 1}}
	if !reflect.DeepEqual(got.Options, want) {
		t.Errorf("options = %+v, want %+v", got.Options, want)
	}

	var body map[string]any
	if err := json.Unmarshal(f.engine.body, &body); err != nil {
		t.Fatal(err)
	}
	if body["size"] != 0.0 {
		t.Errorf("size = %v, want 0", body["size"])
	}
	aggs, _ := body["aggs"].(map[string]any)
	if len(aggs) != 1 || aggs["color"] == nil {
		t.Errorf("aggs = %v", aggs)
	}
	if _, ok := body["sort"]; ok {
		t.Error("view more requests must not sort")
	}
}

func TestViewMoreOptions_Errors(t *testing.T) {
	f := newFixture(t)
	req := newRequest(t, request.Params{})

	if _, err := f.svc.ViewMoreOptions(context.Background(), req, "colour"); !errors.Is(err, domain.ErrInvalidFilterField) {
		t.Errorf("unknown field: expected ErrInvalidFilterField, got %v", err)
	}
	if _, err := f.svc.ViewMoreOptions(context.Background(), req, "sku"); !errors.Is(err, domain.ErrInvalidFilterField) {
		t.Errorf("not aggregable: expected ErrInvalidFilterField, got %v", err)
	}
	if f.engine.calls != 0 {
		t.Errorf("engine called %d times", f.engine.calls)
	}
}
