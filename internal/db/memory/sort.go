package memory

import (
	"fmt"
	"math"
	"strings"

	"github.com/gally-search/gally/internal/domain/geo"
)

// sortKey is the resolved value of one sort clause for one hit.
type sortKey struct {
	missing bool
	num     float64
	str     string
	isStr   bool
}

func (k sortKey) value() any {
	switch {
	case k.missing:
		return nil
	case k.isStr:
		return k.str
	default:
		return k.num
	}
}

func (k sortKey) compare(o sortKey) int {
	if k.isStr || o.isStr {
		return strings.Compare(k.str, o.str)
	}
	switch {
	case k.num < o.num:
		return -1
	case k.num > o.num:
		return 1
	}
	return 0
}

type sortClause struct {
	kind         string // score, field, distance
	field        string
	desc         bool
	missingFirst bool
	mode         string
	nestedPath   string
	nestedFilter map[string]any
	reference    geo.Point
	unit         string
}

func parseSort(raw []any) ([]sortClause, error) {
	out := make([]sortClause, 0, len(raw))
	for _, item := range raw {
		switch x := item.(type) {
		case string:
			c := sortClause{kind: "field", field: x}
			if x == "_score" {
				c.kind, c.desc = "score", true
			}
			out = append(out, c)
		case map[string]any:
			for field, body := range x {
				c, err := parseClause(field, body)
				if err != nil {
					return nil, err
				}
				out = append(out, c)
			}
		default:
			return nil, fmt.Errorf("unsupported sort clause %T", item)
		}
	}
	return out, nil
}

func parseClause(field string, raw any) (sortClause, error) {
	body, _ := raw.(map[string]any)
	order, _ := body["order"].(string)
	if s, ok := raw.(string); ok {
		order = s
	}
	c := sortClause{field: field, desc: strings.EqualFold(order, "desc")}

	switch field {
	case "_score":
		c.kind = "score"
		if order == "" {
			c.desc = true
		}
		return c, nil
	case "_script":
		return c, fmt.Errorf("script sorts are not supported by the memory engine")
	case "_geo_distance":
		c.kind = "distance"
		c.unit, _ = body["unit"].(string)
		for k, v := range body {
			switch k {
			case "order", "unit", "mode", "distance_type", "ignore_unmapped":
				continue
			}
			p, ok := toPoint(v)
			if !ok {
				return c, fmt.Errorf("_geo_distance: invalid reference for %s", k)
			}
			c.field, c.reference = k, p
		}
		if c.field == "" {
			return c, fmt.Errorf("_geo_distance: missing field")
		}
		return c, nil
	}

	c.kind = "field"
	c.missingFirst = c.desc
	if m, ok := body["missing"].(string); ok {
		c.missingFirst = m == "_first"
	}
	c.mode, _ = body["mode"].(string)
	if nested, ok := body["nested"].(map[string]any); ok {
		c.nestedPath, _ = nested["path"].(string)
		c.nestedFilter, _ = nested["filter"].(map[string]any)
	}
	return c, nil
}

func (c sortClause) key(h scored) (sortKey, error) {
	switch c.kind {
	case "score":
		return sortKey{num: h.score}, nil
	case "distance":
		v := rootView(h.doc.Source)
		pts := v.points(c.field)
		if len(pts) == 0 {
			return sortKey{num: math.Inf(1)}, nil
		}
		best := math.Inf(1)
		for _, p := range pts {
			if d := geo.Distance(c.reference, p, c.unit); d < best {
				best = d
			}
		}
		return sortKey{num: best}, nil
	}

	values, err := c.fieldValues(rootView(h.doc.Source))
	if err != nil {
		return sortKey{}, err
	}
	if len(values) == 0 && (c.field == "id" || c.field == "_id") {
		values = []any{h.doc.ID}
	}
	if len(values) == 0 {
		return sortKey{missing: true}, nil
	}
	keys := make([]sortKey, 0, len(values))
	for _, val := range values {
		if f, ok := val.(float64); ok {
			keys = append(keys, sortKey{num: f})
			continue
		}
		if b, ok := val.(bool); ok {
			n := 0.0
			if b {
				n = 1
			}
			keys = append(keys, sortKey{num: n})
			continue
		}
		keys = append(keys, sortKey{str: fmt.Sprint(val), isStr: true})
	}
	pickMax := c.desc
	switch c.mode {
	case "min":
		pickMax = false
	case "max":
		pickMax = true
	}
	best := keys[0]
	for _, k := range keys[1:] {
		cmp := k.compare(best)
		if (pickMax && cmp > 0) || (!pickMax && cmp < 0) {
			best = k
		}
	}
	return best, nil
}

func (c sortClause) fieldValues(v view) ([]any, error) {
	if c.nestedPath == "" {
		return v.values(c.field), nil
	}
	var out []any
	for _, sub := range v.subDocuments(c.nestedPath) {
		sv := v.scoped(c.nestedPath, sub)
		if c.nestedFilter != nil {
			ok, _, err := eval(c.nestedFilter, sv)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, sv.values(c.field)...)
	}
	return out, nil
}

// less orders hits by their sort keys; the document id breaks remaining ties.
func less(clauses []sortClause, a, b scored) bool {
	for i, c := range clauses {
		ka, kb := a.keys[i], b.keys[i]
		if ka.missing || kb.missing {
			if ka.missing == kb.missing {
				continue
			}
			if c.missingFirst {
				return ka.missing
			}
			return kb.missing
		}
		cmp := ka.compare(kb)
		if cmp == 0 {
			continue
		}
		if c.desc {
			return cmp > 0
		}
		return cmp < 0
	}
	if len(clauses) == 0 {
		return a.score > b.score
	}
	return false
}
