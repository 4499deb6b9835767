// Package filter compiles parsed filter trees into engine queries
// against an entity mapping.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gally-search/gally/internal/domain"
	"github.com/gally-search/gally/internal/domain/mapping"
	domfilter "github.com/gally-search/gally/internal/domain/search/filter"
	"github.com/gally-search/gally/internal/domain/search/query"
)

// DateFormat is the engine range format accepted for date filters.
const DateFormat = "yyyy-MM-dd||yyyy-MM||yyyy"

// PriceGroupField is the sub-field of a price nested document holding its customer group.
const PriceGroupField = "group_id"

const matchOperator = "and"

var (
	rangeLiteral = regexp.MustCompile(`^(\*|\d+(?:\.\d+)?)-(\*|\d+(?:\.\d+)?)$`)
	dateLayouts  = []string{"2006-01-02", "2006-01", "2006"}
)

// Scope carries the request context a filter is compiled in.
type Scope struct {
	// PriceGroupID restricts price sub-documents to one customer group.
	PriceGroupID string
	// InsideNested is the nested path the compiled query will already run under.
	// Leaves of that path are not wrapped again.
	InsideNested string
}

// Build compiles nodes into a single query. The top-level list is an implicit
// conjunction. A nil query is returned for an empty list.
func Build(m *mapping.Mapping, scope Scope, nodes []domfilter.Node) (query.Node, error) {
	compiled, err := buildAll(m, scope, nodes)
	if err != nil {
		return nil, err
	}
	return query.And(compiled...), nil
}

func buildAll(m *mapping.Mapping, scope Scope, nodes []domfilter.Node) ([]query.Node, error) {
	out := make([]query.Node, 0, len(nodes))
	for _, n := range nodes {
		q, err := buildNode(m, scope, n)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func buildNode(m *mapping.Mapping, scope Scope, n domfilter.Node) (query.Node, error) {
	switch v := n.(type) {
	case domfilter.Condition:
		return buildCondition(m, scope, v)
	case domfilter.Group:
		children, err := buildAll(m, scope, v.Children())
		if err != nil {
			return nil, err
		}
		switch v.Combinator() {
		case domfilter.Should:
			return query.Bool{Should: children, MinimumShouldMatch: 1}, nil
		case domfilter.Not:
			return query.Bool{MustNot: children}, nil
		default:
			return query.Bool{Must: children}, nil
		}
	default:
		return nil, fmt.Errorf("unsupported filter node %T", n)
	}
}

func buildCondition(m *mapping.Mapping, scope Scope, c domfilter.Condition) (query.Node, error) {
	f, ok := m.Field(c.Field())
	if !ok {
		suggestion, _ := m.SuggestClosestField(c.Field())
		return nil, &domain.InvalidFilterFieldError{Field: c.Field(), Suggestion: suggestion}
	}
	if f.Type() == mapping.Nested || !f.IsFilterable() {
		return nil, &domain.InvalidFilterFieldError{Field: c.Field(), Reason: "is not filterable"}
	}

	if err := rulesFor(f.Type()).validate(c.Field(), c); err != nil {
		return nil, err
	}

	if v, ok := c.Value(domfilter.Exist); ok {
		want, err := toBool(v)
		if err != nil {
			return nil, operandError(c.Field(), domfilter.Exist, "a boolean")
		}
		exists := wrap(m, scope, f, query.Exists{Field: f.ExactPath()})
		if want {
			return exists, nil
		}
		return query.Bool{MustNot: []query.Node{exists}}, nil
	}

	leaf, err := buildLeaf(f, c)
	if err != nil {
		return nil, err
	}
	return wrap(m, scope, f, leaf), nil
}

func buildLeaf(f mapping.Field, c domfilter.Condition) (query.Node, error) {
	name := c.Field()
	t := f.Type()

	if v, ok := c.Value(domfilter.Match); ok {
		s, isString := v.(string)
		if !isString || s == "" {
			return nil, operandError(name, domfilter.Match, "a non-empty string")
		}
		if !f.IsSearchable() {
			return nil, combinationError(name, []domfilter.Operator{domfilter.Match},
				"Operator 'match' is only supported on searchable fields.")
		}
		return query.Match{Field: f.Code(), Query: s, Operator: matchOperator}, nil
	}

	if v, ok := c.Value(domfilter.Eq); ok {
		switch {
		case t == mapping.Date:
			d, err := dateValue(name, domfilter.Eq, v)
			if err != nil {
				return nil, err
			}
			return query.Range{Field: f.ExactPath(), Gte: d, Lte: d, Format: DateFormat}, nil
		case t.IsNumeric():
			return numericEq(f, name, v)
		case t == mapping.Boolean || t == mapping.Stock:
			b, err := toBool(v)
			if err != nil {
				return nil, operandError(name, domfilter.Eq, "a boolean")
			}
			return query.Term{Field: f.ExactPath(), Value: b}, nil
		default:
			if !isScalar(v) {
				return nil, operandError(name, domfilter.Eq, "a scalar value")
			}
			return query.Term{Field: f.ExactPath(), Value: v}, nil
		}
	}

	if v, ok := c.Value(domfilter.In); ok {
		values, isList := v.([]any)
		if !isList || len(values) == 0 {
			return nil, operandError(name, domfilter.In, "a non-empty list")
		}
		if t.IsNumeric() {
			return numericIn(f, name, values)
		}
		for _, item := range values {
			if !isScalar(item) {
				return nil, operandError(name, domfilter.In, "a list of scalar values")
			}
		}
		return query.Terms{Field: f.ExactPath(), Values: values}, nil
	}

	return buildRange(f, c)
}

func buildRange(f mapping.Field, c domfilter.Condition) (query.Node, error) {
	r := query.Range{Field: f.ExactPath()}
	if f.Type() == mapping.Date {
		r.Format = DateFormat
	}
	bounds := []struct {
		op  domfilter.Operator
		dst *any
	}{
		{domfilter.Gt, &r.Gt},
		{domfilter.Gte, &r.Gte},
		{domfilter.Lt, &r.Lt},
		{domfilter.Lte, &r.Lte},
	}
	for _, b := range bounds {
		v, ok := c.Value(b.op)
		if !ok {
			continue
		}
		if f.Type() == mapping.Date {
			d, err := dateValue(c.Field(), b.op, v)
			if err != nil {
				return nil, err
			}
			*b.dst = d
			continue
		}
		n, ok := toNumber(v)
		if !ok {
			return nil, operandError(c.Field(), b.op, "a number")
		}
		*b.dst = n
	}
	return r, nil
}

func numericEq(f mapping.Field, name string, v any) (query.Node, error) {
	if s, ok := v.(string); ok && rangeLiteral.MatchString(s) {
		return literalRange(f, name, domfilter.Eq, s)
	}
	n, ok := toNumber(v)
	if !ok {
		return nil, operandError(name, domfilter.Eq, "a number or a 'min-max' range")
	}
	return query.Term{Field: f.ExactPath(), Value: n}, nil
}

func numericIn(f mapping.Field, name string, values []any) (query.Node, error) {
	var (
		plain  []any
		ranges []query.Node
	)
	for _, item := range values {
		if s, ok := item.(string); ok && rangeLiteral.MatchString(s) {
			r, err := literalRange(f, name, domfilter.In, s)
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, r)
			continue
		}
		n, ok := toNumber(item)
		if !ok {
			return nil, operandError(name, domfilter.In, "a list of numbers or 'min-max' ranges")
		}
		plain = append(plain, n)
	}
	if len(ranges) == 0 {
		return query.Terms{Field: f.ExactPath(), Values: plain}, nil
	}
	should := ranges
	if len(plain) > 0 {
		should = append([]query.Node{query.Terms{Field: f.ExactPath(), Values: plain}}, ranges...)
	}
	return query.Bool{Should: should, MinimumShouldMatch: 1}, nil
}

// literalRange turns "lo-hi" into gte/lte bounds; "*" leaves a side open.
func literalRange(f mapping.Field, name string, op domfilter.Operator, s string) (query.Node, error) {
	parts := rangeLiteral.FindStringSubmatch(s)
	r := query.Range{Field: f.ExactPath()}
	if parts[1] != "*" {
		lo, _ := strconv.ParseFloat(parts[1], 64)
		r.Gte = lo
	}
	if parts[2] != "*" {
		hi, _ := strconv.ParseFloat(parts[2], 64)
		r.Lte = hi
	}
	if r.Gte == nil && r.Lte == nil {
		return nil, domain.NewInvalidRequest("Filter argument %s: range '%s' for operator '%s' has no bound.", name, s, op)
	}
	return r, nil
}

// wrap scopes a leaf on a nested field to its sub-document, restricting price
// sub-documents to the requested customer group.
func wrap(m *mapping.Mapping, scope Scope, f mapping.Field, leaf query.Node) query.Node {
	if !f.IsNested() {
		return leaf
	}
	inner := leaf
	if f.Type() == mapping.Price && scope.PriceGroupID != "" {
		group := f.NestedPath() + "." + PriceGroupField
		if gf, ok := m.Field(group); ok {
			group = gf.ExactPath()
		}
		inner = query.Bool{Must: []query.Node{leaf, query.Term{Field: group, Value: scope.PriceGroupID}}}
	}
	if scope.InsideNested == f.NestedPath() {
		return inner
	}
	return query.Nested{Path: f.NestedPath(), Query: inner}
}

func dateValue(name string, op domfilter.Operator, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &domain.InvalidDateFormatError{Field: name, Operator: string(op), Value: fmt.Sprint(v)}
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return s, nil
		}
	}
	return "", &domain.InvalidDateFormatError{Field: name, Operator: string(op), Value: s}
}

func operandError(name string, op domfilter.Operator, want string) error {
	return domain.NewInvalidRequest("Filter argument %s: operator '%s' expects %s.", name, op, want)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	case float64:
		if b == 0 || b == 1 {
			return b == 1, nil
		}
	}
	return false, fmt.Errorf("not a boolean: %v", v)
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int64:
		return true
	default:
		return false
	}
}
