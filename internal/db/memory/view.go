package memory

import (
	"strconv"
	"strings"
	"time"

	"github.com/gally-search/gally/internal/domain/geo"
)

const keywordSuffix = ".keyword"

// view is a document as seen by a query. Inside a nested scope, paths under
// the nested path resolve against the current sub-document.
type view struct {
	root       map[string]any
	nestedPath string
	nested     map[string]any
}

func rootView(src map[string]any) view {
	return view{root: src}
}

func (v view) scoped(path string, sub map[string]any) view {
	return view{root: v.root, nestedPath: path, nested: sub}
}

// values returns the flattened values stored at path.
func (v view) values(path string) []any {
	out := v.lookup(path)
	if len(out) == 0 && strings.HasSuffix(path, keywordSuffix) {
		out = v.lookup(strings.TrimSuffix(path, keywordSuffix))
	}
	return out
}

func (v view) lookup(path string) []any {
	if v.nested != nil {
		if rest, ok := strings.CutPrefix(path, v.nestedPath+"."); ok {
			return resolve(v.nested, strings.Split(rest, "."))
		}
	}
	return resolve(v.root, strings.Split(path, "."))
}

// subDocuments returns the objects stored under a nested path.
func (v view) subDocuments(path string) []map[string]any {
	var out []map[string]any
	for _, item := range v.lookup(path) {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func resolve(m map[string]any, parts []string) []any {
	cur, ok := m[parts[0]]
	if !ok || cur == nil {
		return nil
	}
	if len(parts) == 1 {
		return flatten(cur)
	}
	var out []any
	switch x := cur.(type) {
	case map[string]any:
		out = append(out, resolve(x, parts[1:])...)
	case []any:
		for _, item := range x {
			if sub, ok := item.(map[string]any); ok {
				out = append(out, resolve(sub, parts[1:])...)
			}
		}
	}
	return out
}

func flatten(v any) []any {
	list, ok := v.([]any)
	if !ok {
		return []any{v}
	}
	var out []any
	for _, item := range list {
		if item != nil {
			out = append(out, item)
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func equal(a, b any) bool {
	if fa, ok := a.(float64); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if fb, ok := b.(float64); ok {
		fa, ok := toFloat(a)
		return ok && fa == fb
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			if s, isStr := b.(string); isStr {
				parsed, err := strconv.ParseBool(s)
				return err == nil && parsed == ba
			}
		}
		return ok && ba == bb
	}
	return a == b
}

var dateLayouts = []struct {
	layout string
	step   func(time.Time) time.Time
}{
	{time.RFC3339, func(t time.Time) time.Time { return t.Add(time.Second) }},
	{"2006-01-02 15:04:05", func(t time.Time) time.Time { return t.Add(time.Second) }},
	{"2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	{"2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
	{"2006", func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }},
}

// parseDate parses s; with roundUp the last instant of its precision is returned.
func parseDate(s string, roundUp bool) (time.Time, bool) {
	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if roundUp {
			return l.step(t).Add(-time.Nanosecond), true
		}
		return t, true
	}
	return time.Time{}, false
}

func toPoint(v any) (geo.Point, bool) {
	switch p := v.(type) {
	case map[string]any:
		lat, okLat := toFloat(p["lat"])
		lon, okLon := toFloat(p["lon"])
		return geo.Point{Lat: lat, Lon: lon}, okLat && okLon
	case string:
		pt, err := geo.ParsePoint(p)
		return pt, err == nil
	}
	return geo.Point{}, false
}

// points returns the geo points stored at path; a [lon, lat] array counts as one point.
func (v view) points(path string) []geo.Point {
	raw := v.lookupRaw(path)
	if arr, ok := raw.([]any); ok && len(arr) == 2 {
		lon, okLon := arr[0].(float64)
		lat, okLat := arr[1].(float64)
		if okLon && okLat {
			return []geo.Point{{Lat: lat, Lon: lon}}
		}
	}
	var out []geo.Point
	for _, item := range v.values(path) {
		if p, ok := toPoint(item); ok {
			out = append(out, p)
		}
	}
	return out
}

func (v view) lookupRaw(path string) any {
	src := v.root
	if v.nested != nil {
		if rest, ok := strings.CutPrefix(path, v.nestedPath+"."); ok {
			src, path = v.nested, rest
		}
	}
	var cur any = src
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}
