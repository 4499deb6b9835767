// Package memory is an in-process search engine evaluating the subset of the
// engine DSL produced by the request assembler. It backs local runs and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gally-search/gally/internal/db"
)

// Compile-time check: Engine implements db.Engine.
var _ db.Engine = (*Engine)(nil)

const defaultSize = 10

// Document is one indexed document.
type Document struct {
	ID     string         `yaml:"id" json:"id"`
	Source map[string]any `yaml:"source" json:"source"`
}

// Fixtures is the on-disk layout of preloaded indexes.
type Fixtures struct {
	Indexes map[string][]Document `yaml:"indexes"`
}

// Engine holds documents per index (or alias) name.
type Engine struct {
	mu      sync.RWMutex
	indexes map[string][]Document
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{indexes: make(map[string][]Document)}
}

// LoadFixtures creates an engine preloaded from a YAML fixtures file.
func LoadFixtures(path string) (*Engine, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	e := New()
	for name, docs := range f.Indexes {
		e.Index(name, docs...)
	}
	return e, nil
}

// Index adds documents to an index, replacing documents with the same id.
func (e *Engine) Index(name string, docs ...Document) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name = strings.ToLower(name)
	existing := e.indexes[name]
	for _, d := range docs {
		d.Source = normalizeMap(d.Source)
		replaced := false
		for i := range existing {
			if existing[i].ID == d.ID {
				existing[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, d)
		}
	}
	e.indexes[name] = existing
}

// Ping always succeeds.
func (e *Engine) Ping(_ context.Context) error { return nil }

type searchRequest struct {
	Query map[string]any `json:"query"`
	Sort  []any          `json:"sort"`
	Aggs  map[string]any `json:"aggs"`
	From  int            `json:"from"`
	Size  *int           `json:"size"`
}

type scored struct {
	doc   Document
	score float64
	keys  []sortKey
}

// Search evaluates body against the documents of index.
func (e *Engine) Search(ctx context.Context, index string, body []byte) (*db.SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("decode request: %w", err)}
	}

	e.mu.RLock()
	docs, ok := e.indexes[strings.ToLower(index)]
	e.mu.RUnlock()
	if !ok {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%s: %w", index, db.ErrIndexNotFound)}
	}

	query := req.Query
	if query == nil {
		query = map[string]any{"match_all": map[string]any{}}
	}

	var (
		hits    []scored
		matched []view
	)
	for _, d := range docs {
		v := rootView(d.Source)
		ok, score, err := eval(query, v)
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		if ok {
			hits = append(hits, scored{doc: d, score: score})
			matched = append(matched, v)
		}
	}

	clauses, err := parseSort(req.Sort)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	for i := range hits {
		hits[i].keys = make([]sortKey, len(clauses))
		for j, c := range clauses {
			k, err := c.key(hits[i])
			if err != nil {
				return nil, &db.Error{Op: db.OpSearch, Err: err}
			}
			hits[i].keys[j] = k
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return less(clauses, hits[i], hits[j])
	})

	resp := &db.SearchResponse{Hits: db.Hits{Total: db.Total{Value: int64(len(hits)), Relation: "eq"}}}
	var maxScore float64
	for _, h := range hits {
		if h.score > maxScore {
			maxScore = h.score
		}
	}
	if len(hits) > 0 {
		resp.Hits.MaxScore = &maxScore
	}

	size := defaultSize
	if req.Size != nil {
		size = *req.Size
	}
	from := req.From
	if from < 0 {
		from = 0
	}
	for i := from; i < len(hits) && i < from+size; i++ {
		h := hits[i]
		score := h.score
		hit := db.Hit{Index: index, ID: h.doc.ID, Score: &score, Source: h.doc.Source}
		if len(clauses) > 0 {
			hit.Sort = make([]any, len(h.keys))
			for j, k := range h.keys {
				hit.Sort[j] = k.value()
			}
		}
		resp.Hits.Hits = append(resp.Hits.Hits, hit)
	}
	if resp.Hits.Hits == nil {
		resp.Hits.Hits = []db.Hit{}
	}

	if len(req.Aggs) > 0 {
		aggs, err := aggregateAll(req.Aggs, matched)
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		resp.Aggregations = aggs
	}
	return resp, nil
}

// normalizeMap converts YAML-decoded values to their JSON-decoded equivalents.
func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case map[string]any:
		return normalizeMap(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
