package memory

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

func aggregateAll(specs map[string]any, docs []view) (map[string]any, error) {
	out := make(map[string]any, len(specs))
	for name, raw := range specs {
		spec, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("aggregation %s must be an object", name)
		}
		res, err := aggregate(spec, docs)
		if err != nil {
			return nil, fmt.Errorf("aggregation %s: %w", name, err)
		}
		out[name] = res
	}
	return out, nil
}

func aggregate(spec map[string]any, docs []view) (map[string]any, error) {
	sub, _ := spec["aggs"].(map[string]any)
	for kind, raw := range spec {
		if kind == "aggs" {
			continue
		}
		body, _ := raw.(map[string]any)
		switch kind {
		case "nested":
			path, _ := body["path"].(string)
			var scoped []view
			for _, d := range docs {
				for _, s := range d.subDocuments(path) {
					scoped = append(scoped, d.scoped(path, s))
				}
			}
			return withSub(map[string]any{"doc_count": int64(len(scoped))}, sub, scoped)
		case "filter":
			var kept []view
			for _, d := range docs {
				ok, _, err := eval(body, d)
				if err != nil {
					return nil, err
				}
				if ok {
					kept = append(kept, d)
				}
			}
			return withSub(map[string]any{"doc_count": int64(len(kept))}, sub, kept)
		case "terms":
			return termsAgg(body, docs), nil
		case "histogram":
			return histogramAgg(body, docs)
		case "date_histogram":
			return dateHistogramAgg(body, docs), nil
		case "stats":
			return statsAgg(body, docs), nil
		default:
			return nil, fmt.Errorf("unsupported aggregation %q", kind)
		}
	}
	return nil, fmt.Errorf("empty aggregation")
}

func withSub(res, sub map[string]any, docs []view) (map[string]any, error) {
	if len(sub) == 0 {
		return res, nil
	}
	inner, err := aggregateAll(sub, docs)
	if err != nil {
		return nil, err
	}
	for k, v := range inner {
		res[k] = v
	}
	return res, nil
}

type bucket struct {
	key   any
	label string
	count int64
}

// countDistinct counts documents per distinct value of field.
func countDistinct(field string, docs []view, keyOf func(any) (any, string, bool)) map[string]*bucket {
	counts := map[string]*bucket{}
	for _, d := range docs {
		seen := map[string]bool{}
		for _, v := range d.values(field) {
			key, label, ok := keyOf(v)
			if !ok || seen[label] {
				continue
			}
			seen[label] = true
			b, exists := counts[label]
			if !exists {
				b = &bucket{key: key, label: label}
				counts[label] = b
			}
			b.count++
		}
	}
	return counts
}

func termsAgg(body map[string]any, docs []view) map[string]any {
	field, _ := body["field"].(string)
	size := 10
	if n, ok := toFloat(body["size"]); ok {
		size = int(n)
	}
	include := map[string]bool{}
	if list, ok := body["include"].([]any); ok {
		for _, v := range list {
			include[fmt.Sprint(v)] = true
		}
	}

	counts := countDistinct(field, docs, func(v any) (any, string, bool) {
		switch x := v.(type) {
		case bool:
			return x, strconv.FormatBool(x), true
		case float64:
			return x, strconv.FormatFloat(x, 'f', -1, 64), true
		case string:
			return x, x, true
		}
		return nil, "", false
	})

	list := make([]*bucket, 0, len(counts))
	for label, b := range counts {
		if len(include) > 0 && !include[label] {
			continue
		}
		list = append(list, b)
	}

	byKey := false
	if order, ok := body["order"].(map[string]any); ok {
		_, byKey = order["_key"]
	}
	sort.Slice(list, func(i, j int) bool {
		if !byKey && list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].label < list[j].label
	})

	var other int64
	buckets := make([]any, 0, len(list))
	for i, b := range list {
		if i >= size {
			other += b.count
			continue
		}
		entry := map[string]any{"key": b.key, "doc_count": b.count}
		if flag, isBool := b.key.(bool); isBool {
			entry["key"] = boolKey(flag)
			entry["key_as_string"] = b.label
		}
		buckets = append(buckets, entry)
	}
	return map[string]any{
		"doc_count_error_upper_bound": int64(0),
		"sum_other_doc_count":         other,
		"buckets":                     buckets,
	}
}

func boolKey(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func histogramAgg(body map[string]any, docs []view) (map[string]any, error) {
	field, _ := body["field"].(string)
	interval, ok := toFloat(body["interval"])
	if !ok || interval <= 0 {
		return nil, fmt.Errorf("histogram: interval must be positive")
	}
	counts := countDistinct(field, docs, func(v any) (any, string, bool) {
		f, ok := toFloat(v)
		if !ok {
			return nil, "", false
		}
		k := math.Floor(f/interval) * interval
		return k, strconv.FormatFloat(k, 'f', -1, 64), true
	})
	return sortedBuckets(counts, false), nil
}

func dateHistogramAgg(body map[string]any, docs []view) map[string]any {
	field, _ := body["field"].(string)
	format, _ := body["format"].(string)
	layout := goLayout(format)
	counts := countDistinct(field, docs, func(v any) (any, string, bool) {
		s, ok := v.(string)
		if !ok {
			return nil, "", false
		}
		t, ok := parseDate(s, false)
		if !ok {
			return nil, "", false
		}
		month := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return float64(month.UnixMilli()), month.Format(layout), true
	})
	return sortedBuckets(counts, true)
}

func sortedBuckets(counts map[string]*bucket, withString bool) map[string]any {
	list := make([]*bucket, 0, len(counts))
	for _, b := range counts {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool {
		ki, _ := toFloat(list[i].key)
		kj, _ := toFloat(list[j].key)
		return ki < kj
	})
	buckets := make([]any, 0, len(list))
	for _, b := range list {
		entry := map[string]any{"key": b.key, "doc_count": b.count}
		if withString {
			entry["key_as_string"] = b.label
		}
		buckets = append(buckets, entry)
	}
	return map[string]any{"buckets": buckets}
}

func statsAgg(body map[string]any, docs []view) map[string]any {
	field, _ := body["field"].(string)
	var (
		count  int64
		sum    float64
		lo, hi float64
	)
	for _, d := range docs {
		for _, v := range d.values(field) {
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			if count == 0 || f < lo {
				lo = f
			}
			if count == 0 || f > hi {
				hi = f
			}
			count++
			sum += f
		}
	}
	res := map[string]any{"count": count, "sum": sum}
	if count > 0 {
		res["min"], res["max"], res["avg"] = lo, hi, sum/float64(count)
	} else {
		res["min"], res["max"], res["avg"] = nil, nil, nil
	}
	return res
}

// goLayout converts an engine date format (yyyy-MM-dd) to a Go layout.
func goLayout(format string) string {
	if format == "" {
		return "2006-01-02"
	}
	r := strings.NewReplacer("yyyy", "2006", "MM", "01", "dd", "02", "HH", "15", "mm", "04", "ss", "05")
	return r.Replace(format)
}
