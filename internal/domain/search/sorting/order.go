package sorting

import (
	"github.com/gally-search/gally/internal/domain/geo"
	"github.com/gally-search/gally/internal/domain/search/query"
)

// Kind is the resolved sort order variant.
type Kind string

// Resolved sort order kinds.
const (
	KindScore    Kind = "score"
	KindStandard Kind = "standard"
	KindNested   Kind = "nested"
	KindScript   Kind = "script"
	KindDistance Kind = "distance"
)

// Missing value placement.
const (
	MissingFirst = "_first"
	MissingLast  = "_last"
)

// Distance holds resolved geo-distance parameters.
type Distance struct {
	Reference      geo.Point
	Unit           string
	Mode           string
	DistanceType   string
	IgnoreUnmapped bool
}

// Order is one resolved sort order.
type Order struct {
	kind         Kind
	field        string
	publicField  string
	direction    Direction
	nestedPath   string
	nestedFilter query.Node
	script       *Script
	distance     *Distance
}

// NewScoreOrder sorts by relevance score.
func NewScoreOrder(d Direction) Order {
	return Order{kind: KindScore, field: ScoreField, publicField: ScoreField, direction: d}
}

// NewStandardOrder sorts by a root document field.
func NewStandardOrder(path, publicField string, d Direction) Order {
	return Order{kind: KindStandard, field: path, publicField: publicField, direction: d}
}

// NewNestedOrder sorts by a field inside nested sub-documents. filter may be nil.
func NewNestedOrder(path, publicField string, d Direction, nestedPath string, filter query.Node) Order {
	return Order{
		kind: KindNested, field: path, publicField: publicField, direction: d,
		nestedPath: nestedPath, nestedFilter: filter,
	}
}

// NewScriptOrder sorts by a script value.
func NewScriptOrder(s Script, d Direction) Order {
	return Order{kind: KindScript, field: ScriptField, publicField: ScriptField, direction: d, script: &s}
}

// NewDistanceOrder sorts by distance to a reference point.
func NewDistanceOrder(path, publicField string, d Direction, dist Distance) Order {
	return Order{kind: KindDistance, field: path, publicField: publicField, direction: d, distance: &dist}
}

// Kind returns the order variant.
func (o Order) Kind() Kind { return o.kind }

// Field returns the document path sorted on.
func (o Order) Field() string { return o.field }

// PublicField returns the field name as exposed to API clients.
func (o Order) PublicField() string { return o.publicField }

// Direction returns the sort direction.
func (o Order) Direction() Direction { return o.direction }

// NestedPath returns the nested document path of nested orders.
func (o Order) NestedPath() string { return o.nestedPath }

// NestedFilter returns the sub-document filter of nested orders (may be nil).
func (o Order) NestedFilter() query.Node { return o.nestedFilter }

// Script returns the script of script orders.
func (o Order) Script() *Script { return o.script }

// Distance returns the geo parameters of distance orders.
func (o Order) Distance() *Distance { return o.distance }

// IsTieBreak reports whether the order is one of the deterministic tie-break keys.
func (o Order) IsTieBreak() bool {
	return o.kind == KindScore || (o.kind == KindStandard && o.publicField == IDField)
}

// Source renders the engine sort clause.
func (o Order) Source() map[string]any {
	switch o.kind {
	case KindScore:
		return map[string]any{ScoreField: map[string]any{"order": string(o.direction)}}
	case KindScript:
		script := map[string]any{"lang": o.script.Lang, "source": o.script.Source}
		if len(o.script.Params) > 0 {
			script["params"] = o.script.Params
		}
		return map[string]any{ScriptField: map[string]any{
			"type":   o.script.Type,
			"order":  string(o.direction),
			"script": script,
		}}
	case KindDistance:
		return map[string]any{"_geo_distance": map[string]any{
			o.field:           map[string]any{"lat": o.distance.Reference.Lat, "lon": o.distance.Reference.Lon},
			"order":           string(o.direction),
			"unit":            o.distance.Unit,
			"mode":            o.distance.Mode,
			"distance_type":   o.distance.DistanceType,
			"ignore_unmapped": o.distance.IgnoreUnmapped,
		}}
	case KindNested:
		nested := map[string]any{"path": o.nestedPath}
		if o.nestedFilter != nil {
			nested["filter"] = o.nestedFilter.Source()
		}
		mode := "min"
		if o.direction == Desc {
			mode = "max"
		}
		return map[string]any{o.field: map[string]any{
			"order":   string(o.direction),
			"missing": o.missing(),
			"mode":    mode,
			"nested":  nested,
		}}
	default:
		return map[string]any{o.field: map[string]any{
			"order":   string(o.direction),
			"missing": o.missing(),
		}}
	}
}

// missing places documents without a value after all others in ascending order
// and before all others in descending order.
func (o Order) missing() string {
	if o.direction == Desc {
		return MissingFirst
	}
	return MissingLast
}

// Sources renders a list of orders.
func Sources(orders []Order) []any {
	out := make([]any, len(orders))
	for i, o := range orders {
		out[i] = o.Source()
	}
	return out
}

// Current describes the effective primary sort for client display.
type Current struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// CurrentSort returns the primary order of a resolved sequence.
func CurrentSort(orders []Order) []Current {
	if len(orders) == 0 {
		return nil
	}
	return []Current{{Field: orders[0].publicField, Direction: orders[0].direction}}
}
