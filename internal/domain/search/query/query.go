// Package query is the native search-engine expression tree.
// Every node renders to the engine DSL through Source.
package query

// Node is an engine query clause.
type Node interface {
	Source() map[string]any
}

// MatchAll matches every document.
type MatchAll struct{}

// Source renders the clause.
func (MatchAll) Source() map[string]any {
	return map[string]any{"match_all": map[string]any{}}
}

// Term is an exact-value condition.
type Term struct {
	Field string
	Value any
}

// Source renders the clause.
func (q Term) Source() map[string]any {
	return map[string]any{"term": map[string]any{q.Field: map[string]any{"value": q.Value}}}
}

// Terms is a membership condition.
type Terms struct {
	Field  string
	Values []any
}

// Source renders the clause.
func (q Terms) Source() map[string]any {
	return map[string]any{"terms": map[string]any{q.Field: q.Values}}
}

// Match is a full-text condition on one field.
type Match struct {
	Field    string
	Query    string
	Operator string
}

// Source renders the clause.
func (q Match) Source() map[string]any {
	body := map[string]any{"query": q.Query}
	if q.Operator != "" {
		body["operator"] = q.Operator
	}
	return map[string]any{"match": map[string]any{q.Field: body}}
}

// MultiMatch is a full-text condition over weighted fields ("code^weight").
type MultiMatch struct {
	Query    string
	Fields   []string
	Type     string
	Operator string
}

// Source renders the clause.
func (q MultiMatch) Source() map[string]any {
	fields := make([]any, len(q.Fields))
	for i, f := range q.Fields {
		fields[i] = f
	}
	body := map[string]any{"query": q.Query, "fields": fields}
	if q.Type != "" {
		body["type"] = q.Type
	}
	if q.Operator != "" {
		body["operator"] = q.Operator
	}
	return map[string]any{"multi_match": body}
}

// Exists matches documents holding a value for Field.
type Exists struct {
	Field string
}

// Source renders the clause.
func (q Exists) Source() map[string]any {
	return map[string]any{"exists": map[string]any{"field": q.Field}}
}

// Range bounds a field. Nil bounds are open.
type Range struct {
	Field  string
	Gt     any
	Gte    any
	Lt     any
	Lte    any
	Format string
}

// Source renders the clause.
func (q Range) Source() map[string]any {
	body := map[string]any{}
	if q.Gt != nil {
		body["gt"] = q.Gt
	}
	if q.Gte != nil {
		body["gte"] = q.Gte
	}
	if q.Lt != nil {
		body["lt"] = q.Lt
	}
	if q.Lte != nil {
		body["lte"] = q.Lte
	}
	if q.Format != "" {
		body["format"] = q.Format
	}
	return map[string]any{"range": map[string]any{q.Field: body}}
}

// Bool combines clauses. MinimumShouldMatch is rendered only when positive.
type Bool struct {
	Must               []Node
	Should             []Node
	MustNot            []Node
	Filter             []Node
	MinimumShouldMatch int
}

// Source renders the clause.
func (q Bool) Source() map[string]any {
	body := map[string]any{}
	if len(q.Must) > 0 {
		body["must"] = Sources(q.Must)
	}
	if len(q.Should) > 0 {
		body["should"] = Sources(q.Should)
	}
	if len(q.MustNot) > 0 {
		body["must_not"] = Sources(q.MustNot)
	}
	if len(q.Filter) > 0 {
		body["filter"] = Sources(q.Filter)
	}
	if q.MinimumShouldMatch > 0 {
		body["minimum_should_match"] = q.MinimumShouldMatch
	}
	return map[string]any{"bool": body}
}

// Nested scopes Query to the sub-documents under Path.
type Nested struct {
	Path      string
	Query     Node
	ScoreMode string
}

// Source renders the clause.
func (q Nested) Source() map[string]any {
	body := map[string]any{"path": q.Path, "query": q.Query.Source()}
	if q.ScoreMode != "" {
		body["score_mode"] = q.ScoreMode
	}
	return map[string]any{"nested": body}
}

// Sources renders a list of clauses.
func Sources(nodes []Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = n.Source()
	}
	return out
}

// And returns the conjunction of nodes: nil for none, the node itself for one.
func And(nodes ...Node) Node {
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	default:
		return Bool{Must: nodes}
	}
}
