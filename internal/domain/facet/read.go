package facet

import (
	"fmt"
	"strconv"
)

// Option is one facet value with its document count.
type Option struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Facet is a facet read back from an engine response.
type Facet struct {
	Field   string     `json:"field"`
	Label   string     `json:"label"`
	Type    BucketType `json:"type"`
	HasMore bool       `json:"hasMore"`
	Count   int        `json:"count"`
	Options []Option   `json:"options"`
	Min     *float64   `json:"min,omitempty"`
	Max     *float64   `json:"max,omitempty"`
}

// Read maps the raw aggregation result of a into a facet.
// total is the number of matching documents. ok is false when the facet must not be shown.
func Read(a Aggregation, c Configuration, raw map[string]any, total int64) (f Facet, ok bool) {
	raw = unwrap(a, raw)
	s := c.Settings()
	f = Facet{
		Field:   a.Name,
		Label:   c.Field().Label(),
		Type:    a.Type,
		Options: []Option{},
	}

	if a.Type == BucketSlider {
		if count := toInt64(raw["count"]); count > 0 {
			minV, maxV := toFloat64(raw["min"]), toFloat64(raw["max"])
			f.Min, f.Max = &minV, &maxV
			f.Count = int(count)
		}
		return f, f.Count > 0 || s.DisplayMode == DisplayDisplayed
	}

	buckets, _ := raw["buckets"].([]any)
	for _, b := range buckets {
		bm, isMap := b.(map[string]any)
		if !isMap {
			continue
		}
		count := toInt64(bm["doc_count"])
		if count == 0 {
			continue
		}
		f.Options = append(f.Options, Option{Value: bucketValue(a, bm), Count: count})
	}

	if a.Type == BucketCheckbox || a.Type == BucketCategory {
		f.HasMore = HasMore(f.Options, s.MaxSize, s.CoverageRate, total)
		if len(f.Options) > s.MaxSize {
			f.Options = f.Options[:s.MaxSize]
		}
	}
	f.Count = len(f.Options)

	return f, f.Count > 0 || s.DisplayMode == DisplayDisplayed
}

// HasMore reports whether a "view more" affordance applies: more than maxSize options
// exist, or the top maxSize options cover less than coverageRate percent of total.
func HasMore(options []Option, maxSize, coverageRate int, total int64) bool {
	if len(options) > maxSize {
		return true
	}
	if total <= 0 {
		return false
	}
	var covered int64
	for i, o := range options {
		if i >= maxSize {
			break
		}
		covered += o.Count
	}
	return covered*100 < int64(coverageRate)*total
}

// unwrap descends through the nested and filter scopes added by Source.
func unwrap(a Aggregation, raw map[string]any) map[string]any {
	if a.NestedPath != "" {
		raw = child(raw, a.Name)
		if a.Filter != nil {
			raw = child(raw, a.Name)
		}
	}
	return raw
}

func child(raw map[string]any, name string) map[string]any {
	if inner, ok := raw[name].(map[string]any); ok {
		return inner
	}
	return map[string]any{}
}

func bucketValue(a Aggregation, b map[string]any) string {
	if a.Type == BucketHistogram {
		lower := toFloat64(b["key"])
		return formatNumber(lower) + "-" + formatNumber(lower+a.Interval)
	}
	if s, ok := b["key_as_string"].(string); ok {
		return s
	}
	switch k := b["key"].(type) {
	case string:
		return k
	case float64:
		return formatNumber(k)
	case bool:
		return strconv.FormatBool(k)
	default:
		return fmt.Sprint(k)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
