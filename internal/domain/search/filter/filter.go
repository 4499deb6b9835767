package filter

import (
	"fmt"
	"sort"
	"strings"
)

// Structural limits of a filter tree.
const (
	MaxConditionsPerGroup = 32
	MaxDepth              = 8
)

// Operator is a leaf filter operator.
type Operator string

// Leaf operators.
const (
	Eq    Operator = "eq"
	In    Operator = "in"
	Match Operator = "match"
	Exist Operator = "exist"
	Gt    Operator = "gt"
	Gte   Operator = "gte"
	Lt    Operator = "lt"
	Lte   Operator = "lte"
)

// operatorOrder is the canonical reporting order of operators.
var operatorOrder = []Operator{Eq, In, Match, Exist, Gt, Gte, Lt, Lte}

// IsValid reports whether o is a known operator.
func (o Operator) IsValid() bool {
	for _, known := range operatorOrder {
		if o == known {
			return true
		}
	}
	return false
}

// Combinator is a boolean group kind.
type Combinator string

// Boolean combinators.
const (
	Must   Combinator = "_must"
	Should Combinator = "_should"
	Not    Combinator = "_not"
)

// IsValid reports whether c is a known combinator.
func (c Combinator) IsValid() bool {
	return c == Must || c == Should || c == Not
}

// Node is either a Condition or a Group.
type Node interface {
	node()
}

// Condition is a leaf: one field with one or more operator values.
type Condition struct {
	field string
	ops   map[Operator]any
}

// NewCondition validates and creates a Condition.
// Nil operator values are treated as not filled.
// Operator compatibility with the field type is checked by the query builder.
func NewCondition(field string, ops map[Operator]any) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	cp := make(map[Operator]any, len(ops))
	for op, v := range ops {
		if !op.IsValid() {
			return Condition{}, fmt.Errorf("unknown operator %q for field %q", op, field)
		}
		if v == nil {
			continue
		}
		cp[op] = v
	}
	return Condition{field: field, ops: cp}, nil
}

func (Condition) node() {}

// Field returns the field name as given by the caller.
func (c Condition) Field() string { return c.field }

// Has reports whether op is filled.
func (c Condition) Has(op Operator) bool {
	_, ok := c.ops[op]
	return ok
}

// Value returns the value of op.
func (c Condition) Value(op Operator) (any, bool) {
	v, ok := c.ops[op]
	return v, ok
}

// Operators returns the filled operators in canonical order.
func (c Condition) Operators() []Operator {
	out := make([]Operator, 0, len(c.ops))
	for _, op := range operatorOrder {
		if _, ok := c.ops[op]; ok {
			out = append(out, op)
		}
	}
	return out
}

// Group is a boolean combination of child nodes.
type Group struct {
	combinator Combinator
	children   []Node
}

// NewGroup validates and creates a Group.
func NewGroup(c Combinator, children []Node) (Group, error) {
	if !c.IsValid() {
		return Group{}, fmt.Errorf("unknown combinator %q", c)
	}
	if len(children) > MaxConditionsPerGroup {
		return Group{}, fmt.Errorf("too many %s conditions (max %d)", c, MaxConditionsPerGroup)
	}
	return Group{combinator: c, children: children}, nil
}

func (Group) node() {}

// Combinator returns the group kind.
func (g Group) Combinator() Combinator { return g.combinator }

// Children returns the child nodes.
func (g Group) Children() []Node { return g.children }

// Parse converts the decoded JSON object form into nodes.
// Keys starting with "_" are combinators holding a list of objects; other keys are
// fields holding an operator object. Keys are processed in sorted order.
func Parse(raw map[string]any) ([]Node, error) {
	return parseObject(raw, 1)
}

// ParseList converts a decoded JSON array of filter objects into nodes.
func ParseList(raw []any) ([]Node, error) {
	return parseList(raw, 1)
}

func parseList(raw []any, depth int) ([]Node, error) {
	var out []Node
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("filter item %d must be an object", i)
		}
		nodes, err := parseObject(obj, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func parseObject(raw map[string]any, depth int) ([]Node, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("filter nesting too deep (max %d)", MaxDepth)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Node, 0, len(keys))
	for _, key := range keys {
		value := raw[key]
		if strings.HasPrefix(key, "_") {
			g, err := parseGroup(Combinator(key), value, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
			continue
		}

		opsRaw, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("filter on %q must be an operator object", key)
		}
		ops := make(map[Operator]any, len(opsRaw))
		for op, v := range opsRaw {
			ops[Operator(op)] = v
		}
		c, err := NewCondition(key, ops)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseGroup(c Combinator, value any, depth int) (Group, error) {
	if !c.IsValid() {
		return Group{}, fmt.Errorf("unknown combinator %q", c)
	}

	var children []Node
	var err error
	switch v := value.(type) {
	case []any:
		children, err = parseList(v, depth+1)
	case map[string]any:
		children, err = parseObject(v, depth+1)
	default:
		return Group{}, fmt.Errorf("%s must hold a list of filters", c)
	}
	if err != nil {
		return Group{}, err
	}
	return NewGroup(c, children)
}
