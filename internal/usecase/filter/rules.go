package filter

import (
	"fmt"
	"strings"

	"github.com/gally-search/gally/internal/domain"
	"github.com/gally-search/gally/internal/domain/mapping"
	domfilter "github.com/gally-search/gally/internal/domain/search/filter"
)

// family groups field types sharing one operator rule.
type family int

const (
	// exclusive: exactly one of the allowed operators.
	exclusive family = iota
	// ranged: eq, in or exist alone, or range bounds with gt⊕gte and lt⊕lte.
	ranged
)

type ruleSet struct {
	family  family
	allowed []domfilter.Operator
}

var (
	textRules     = ruleSet{exclusive, []domfilter.Operator{domfilter.Eq, domfilter.In, domfilter.Match, domfilter.Exist}}
	booleanRules  = ruleSet{exclusive, []domfilter.Operator{domfilter.Eq, domfilter.Exist}}
	categoryRules = ruleSet{exclusive, []domfilter.Operator{domfilter.Eq, domfilter.In}}
	geoRules      = ruleSet{exclusive, []domfilter.Operator{domfilter.Exist}}
	numericRules  = ruleSet{ranged, []domfilter.Operator{
		domfilter.Eq, domfilter.In, domfilter.Gt, domfilter.Gte, domfilter.Lt, domfilter.Lte, domfilter.Exist,
	}}
	dateRules = ruleSet{ranged, []domfilter.Operator{
		domfilter.Eq, domfilter.Gt, domfilter.Gte, domfilter.Lt, domfilter.Lte, domfilter.Exist,
	}}
)

func rulesFor(t mapping.Type) ruleSet {
	switch {
	case t.IsTextLike():
		return textRules
	case t == mapping.Boolean || t == mapping.Stock:
		return booleanRules
	case t == mapping.Category:
		return categoryRules
	case t == mapping.GeoPoint:
		return geoRules
	case t == mapping.Date:
		return dateRules
	default:
		return numericRules
	}
}

func (r ruleSet) allows(op domfilter.Operator) bool {
	for _, a := range r.allowed {
		if a == op {
			return true
		}
	}
	return false
}

// validate checks the filled operators of c against the rules of its field type.
func (r ruleSet) validate(name string, c domfilter.Condition) error {
	ops := c.Operators()
	for _, op := range ops {
		if !r.allows(op) {
			return combinationError(name, []domfilter.Operator{op},
				fmt.Sprintf("Operator '%s' is not supported for this field.", op))
		}
	}

	if r.family == exclusive {
		if len(ops) != 1 {
			return combinationError(name, ops, "Only "+quoteList(r.allowed)+" should be filled.")
		}
		return nil
	}

	if len(ops) == 0 {
		return combinationError(name, ops, "Only "+quoteList(r.allowed)+" should be filled.")
	}
	for _, pair := range [][2]domfilter.Operator{{domfilter.Gt, domfilter.Gte}, {domfilter.Lt, domfilter.Lte}} {
		if c.Has(pair[0]) && c.Has(pair[1]) {
			return combinationError(name, pair[:],
				fmt.Sprintf("Do not use '%s' and '%s' in the same filter.", pair[0], pair[1]))
		}
	}
	for _, single := range []domfilter.Operator{domfilter.Eq, domfilter.In, domfilter.Exist} {
		if c.Has(single) && len(ops) > 1 {
			var singles []domfilter.Operator
			for _, op := range r.allowed {
				if op == domfilter.Eq || op == domfilter.In || op == domfilter.Exist {
					singles = append(singles, op)
				}
			}
			return combinationError(name, ops,
				"Only one of "+joinQuoted(singles)+" or range operators should be filled.")
		}
	}
	return nil
}

func combinationError(field string, ops []domfilter.Operator, msg string) error {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return &domain.InvalidFilterOperatorCombinationError{Field: field, Operators: names, Message: msg}
}

func joinQuoted(ops []domfilter.Operator) string {
	quoted := make([]string, len(ops))
	for i, op := range ops {
		quoted[i] = "'" + string(op) + "'"
	}
	return strings.Join(quoted, ", ")
}

// quoteList renders ['a','b','c'] as "'a', 'b' or 'c'".
func quoteList(ops []domfilter.Operator) string {
	quoted := make([]string, len(ops))
	for i, op := range ops {
		quoted[i] = "'" + string(op) + "'"
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}
