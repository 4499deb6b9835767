package sorting

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/gally-search/gally/internal/domain/geo"
	"github.com/gally-search/gally/internal/domain/search/filter"
	"github.com/gally-search/gally/internal/domain/search/query"
)

func decodeAny(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func renderJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"", Asc, false},
		{"ASC", Asc, false},
		{"desc", Desc, false},
		{" Desc ", Desc, false},
		{"up", "", true},
	}
	for _, tc := range tests {
		got, err := ParseDirection(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseDirection(%q) = %q, %v", tc.in, got, err)
		}
	}
	if Asc.Opposite() != Desc || Desc.Opposite() != Asc {
		t.Error("Opposite() mismatch")
	}
}

func TestParseSpec_String(t *testing.T) {
	s, err := ParseSpec("size", "DESC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Field != "size" || s.Direction != Desc || s.Script != nil || s.Geo != nil {
		t.Errorf("unexpected spec %+v", s)
	}
}

func TestParseSpec_ScriptDirectionObject(t *testing.T) {
	raw := decodeAny(t, `{"direction": {"lang": "painless", "scriptType": "number",
		"source": "doc['size'].value * params.f", "params": {"f": 2}, "direction": "desc"}}`)
	s, err := ParseSpec(ScriptField, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Direction != Desc {
		t.Errorf("Direction = %q, want desc", s.Direction)
	}
	if s.Script == nil || s.Script.Source != "doc['size'].value * params.f" || s.Script.Params["f"] != 2.0 {
		t.Fatalf("Script = %+v", s.Script)
	}
	if s.Script.Lang != "painless" || s.Script.Type != "number" {
		t.Errorf("Script lang/type = %q/%q", s.Script.Lang, s.Script.Type)
	}
}

func TestParseSpec_ScriptDefaults(t *testing.T) {
	s, err := ParseSpec(ScriptField, decodeAny(t, `{"source": "1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Direction != Asc || s.Script.Lang != DefaultScriptLang || s.Script.Type != DefaultScriptType {
		t.Errorf("unexpected spec %+v / %+v", s, s.Script)
	}
}

func TestParseSpec_GeoAndNestedFilter(t *testing.T) {
	s, err := ParseSpec("manufacture_location", decodeAny(t,
		`{"direction": "asc", "referenceLocation": "44.832196, -0.554729", "unit": "m", "ignoreUnmapped": true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Geo == nil || s.Geo.ReferenceLocation != "44.832196, -0.554729" || s.Geo.Unit != "m" || !s.Geo.IgnoreUnmapped {
		t.Errorf("Geo = %+v", s.Geo)
	}

	s, err = ParseSpec("price__price", decodeAny(t, `{"direction": "desc", "nestedFilter": {"price__group_id": "1"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.NestedFilter) != 1 {
		t.Fatalf("NestedFilter = %v", s.NestedFilter)
	}
	c := s.NestedFilter[0].(filter.Condition)
	if v, _ := c.Value(filter.Eq); c.Field() != "price__group_id" || v != "1" {
		t.Errorf("nested filter condition = %q %v", c.Field(), v)
	}
}

func TestParseSpec_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bad direction", `"sideways"`, "invalid sort direction"},
		{"bad type", `12`, "unsupported"},
		{"bad source", `{"source": 1}`, "source must be a string"},
		{"bad params", `{"source": "x", "params": 1}`, "params must be an object"},
		{"bad reference", `{"referenceLocation": 1}`, "referenceLocation"},
		{"bad unit", `{"referenceLocation": "1, 1", "unit": 3}`, "unit must be a string"},
		{"bad nested filter", `{"nestedFilter": []}`, "nestedFilter"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSpec("f", decodeAny(t, tc.raw))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want %q", err, tc.want)
			}
		})
	}
	if _, err := ParseSpec("", "asc"); err == nil {
		t.Error("expected error for empty field")
	}
}

func TestDecodeSpecs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"object keeps key order", `{"size": "asc", "color": "desc", "name": "asc"}`, []string{"size", "color", "name"}},
		{"list keeps item order", `[{"size": "asc"}, {"color": "desc"}]`, []string{"size", "color"}},
		{"list of multi-key objects", `[{"size": "asc", "color": "desc"}, {"name": "asc"}]`, []string{"size", "color", "name"}},
		{"null", `null`, nil},
		{"empty", ``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs, err := DecodeSpecs([]byte(tt.raw))
			if err != nil {
				t.Fatalf("DecodeSpecs: %v", err)
			}
			var got []string
			for _, s := range specs {
				got = append(got, s.Field)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("fields = %v, want %v", got, tt.want)
			}
		})
	}

	specs, err := DecodeSpecs([]byte(`{"size": {"direction": "desc"}}`))
	if err != nil || len(specs) != 1 || specs[0].Direction != Desc {
		t.Errorf("object direction: specs = %+v, err = %v", specs, err)
	}
}

func TestDecodeSpecs_Errors(t *testing.T) {
	if _, err := DecodeSpecs([]byte(`"size"`)); !errors.Is(err, ErrNotObjectOrList) {
		t.Errorf("scalar: expected ErrNotObjectOrList, got %v", err)
	}
	if _, err := DecodeSpecs([]byte(`["size"]`)); err == nil {
		t.Error("expected error for a non-object list item")
	}
	if _, err := DecodeSpecs([]byte(`{"size": "up"}`)); err == nil {
		t.Error("expected error for an invalid direction")
	}
}

func TestOrderSource(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		want  string
	}{
		{"score", NewScoreOrder(Desc), `{"_score":{"order":"desc"}}`},
		{"standard asc", NewStandardOrder("size", "size", Asc), `{"size":{"missing":"_last","order":"asc"}}`},
		{"standard desc", NewStandardOrder("id", "id", Desc), `{"id":{"missing":"_first","order":"desc"}}`},
		{
			"nested",
			NewNestedOrder("price.price", "price__price", Asc, "price",
				query.Term{Field: "price.group_id", Value: "0"}),
			`{"price.price":{"missing":"_last","mode":"min","nested":{"filter":{"term":{"price.group_id":{"value":"0"}}},"path":"price"},"order":"asc"}}`,
		},
		{
			"nested desc without filter",
			NewNestedOrder("price.price", "price__price", Desc, "price", nil),
			`{"price.price":{"missing":"_first","mode":"max","nested":{"path":"price"},"order":"desc"}}`,
		},
		{
			"script",
			NewScriptOrder(Script{Lang: "painless", Type: "number", Source: "1"}, Asc),
			`{"_script":{"order":"asc","script":{"lang":"painless","source":"1"},"type":"number"}}`,
		},
		{
			"distance",
			NewDistanceOrder("manufacture_location", "manufacture_location", Asc, Distance{
				Reference: geo.Point{Lat: 44.832196, Lon: -0.554729},
				Unit:      DefaultUnit, Mode: DefaultMode, DistanceType: DefaultDistanceType,
			}),
			`{"_geo_distance":{"distance_type":"arc","ignore_unmapped":false,` +
				`"manufacture_location":{"lat":44.832196,"lon":-0.554729},"mode":"min","order":"asc","unit":"km"}}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := renderJSON(t, tc.order.Source()); got != tc.want {
				t.Errorf("got  %s\nwant %s", got, tc.want)
			}
		})
	}
}

func TestIsTieBreakAndCurrent(t *testing.T) {
	orders := []Order{
		NewNestedOrder("price.price", "price__price", Desc, "price", nil),
		NewScoreOrder(Asc),
		NewStandardOrder(IDField, IDField, Asc),
	}
	if orders[0].IsTieBreak() || !orders[1].IsTieBreak() || !orders[2].IsTieBreak() {
		t.Error("IsTieBreak mismatch")
	}
	cur := CurrentSort(orders)
	if len(cur) != 1 || cur[0].Field != "price__price" || cur[0].Direction != Desc {
		t.Errorf("CurrentSort = %+v", cur)
	}
	if CurrentSort(nil) != nil {
		t.Error("CurrentSort(nil) should be nil")
	}
	if n := len(Sources(orders)); n != 3 {
		t.Errorf("Sources len = %d", n)
	}
}
