package sorting

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gally-search/gally/internal/domain/search/filter"
)

// Reserved sort fields.
const (
	ScoreField  = "_score"
	ScriptField = "_script"
	IDField     = "id"
)

// Geo-distance defaults.
const (
	DefaultUnit         = "km"
	DefaultMode         = "min"
	DefaultDistanceType = "arc"
	DefaultScriptType   = "number"
	DefaultScriptLang   = "painless"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses a case-insensitive direction. Empty defaults to asc.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return "", fmt.Errorf("invalid sort direction %q", s)
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// Script is a scripted sort expression.
type Script struct {
	Lang   string
	Type   string
	Source string
	Params map[string]any
}

// Geo holds the distance sort parameters. Empty values take the package defaults.
type Geo struct {
	ReferenceLocation string
	Unit              string
	Mode              string
	DistanceType      string
	IgnoreUnmapped    bool
}

// Spec is one requested sort directive.
type Spec struct {
	Field        string
	Direction    Direction
	NestedFilter []filter.Node
	Script       *Script
	Geo          *Geo
}

// ParseSpec builds a Spec from its decoded JSON form.
// raw is either a direction string or an object; an object "direction" may itself be
// an object carrying {lang, scriptType, source, params, direction}.
func ParseSpec(field string, raw any) (Spec, error) {
	if field == "" {
		return Spec{}, fmt.Errorf("sort field is required")
	}
	spec := Spec{Field: field, Direction: Asc}
	if err := spec.fill(raw, 0); err != nil {
		return Spec{}, fmt.Errorf("sort on %q: %w", field, err)
	}
	return spec, nil
}

// ErrNotObjectOrList is returned by DecodeSpecs for scalar input.
var ErrNotObjectOrList = errors.New("sort must be an object or a list")

// DecodeSpecs builds specs from raw JSON: an object keyed by field, or a list of
// objects. Object keys keep their order in data, so it sets sort priority.
func DecodeSpecs(data []byte) ([]Spec, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	switch data[0] {
	case '{':
		return decodeObject(data)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode sort list: %w", err)
		}
		var specs []Spec
		for i, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '{' {
				return nil, fmt.Errorf("sort item %d must be an object", i)
			}
			s, err := decodeObject(item)
			if err != nil {
				return nil, err
			}
			specs = append(specs, s...)
		}
		return specs, nil
	default:
		return nil, ErrNotObjectOrList
	}
}

func decodeObject(data []byte) ([]Spec, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode sort: %w", err)
	}
	var specs []Spec
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode sort: %w", err)
		}
		field, _ := tok.(string)
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode sort on %q: %w", field, err)
		}
		s, err := ParseSpec(field, raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

func (s *Spec) fill(raw any, depth int) error {
	if depth > 2 {
		return fmt.Errorf("direction nested too deep")
	}
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		d, err := ParseDirection(v)
		if err != nil {
			return err
		}
		s.Direction = d
		return nil
	case map[string]any:
		return s.fillObject(v, depth)
	default:
		return fmt.Errorf("unsupported sort value of type %T", raw)
	}
}

func (s *Spec) fillObject(obj map[string]any, depth int) error {
	if err := s.fillScript(obj); err != nil {
		return err
	}
	if err := s.fillGeo(obj); err != nil {
		return err
	}
	if nf, ok := obj["nestedFilter"]; ok {
		nfObj, ok := nf.(map[string]any)
		if !ok {
			return fmt.Errorf("nestedFilter must be an object")
		}
		nodes, err := parseNestedFilter(nfObj)
		if err != nil {
			return err
		}
		s.NestedFilter = nodes
	}
	if d, ok := obj["direction"]; ok {
		return s.fill(d, depth+1)
	}
	return nil
}

// parseNestedFilter accepts both {field: value} and {field: {op: value}} entries.
func parseNestedFilter(obj map[string]any) ([]filter.Node, error) {
	normalized := make(map[string]any, len(obj))
	for k, v := range obj {
		if _, isOps := v.(map[string]any); isOps || strings.HasPrefix(k, "_") {
			normalized[k] = v
			continue
		}
		normalized[k] = map[string]any{string(filter.Eq): v}
	}
	nodes, err := filter.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("nestedFilter: %w", err)
	}
	return nodes, nil
}

func (s *Spec) fillScript(obj map[string]any) error {
	src, hasSource := obj["source"]
	if !hasSource {
		return nil
	}
	source, ok := src.(string)
	if !ok {
		return fmt.Errorf("script source must be a string")
	}
	script := &Script{Lang: DefaultScriptLang, Type: DefaultScriptType, Source: source}
	if lang, ok := obj["lang"].(string); ok && lang != "" {
		script.Lang = lang
	}
	if st, ok := obj["scriptType"].(string); ok && st != "" {
		script.Type = st
	}
	if p, ok := obj["params"]; ok {
		params, ok := p.(map[string]any)
		if !ok {
			return fmt.Errorf("script params must be an object")
		}
		script.Params = params
	}
	s.Script = script
	return nil
}

func (s *Spec) fillGeo(obj map[string]any) error {
	ref, hasRef := obj["referenceLocation"]
	if !hasRef {
		return nil
	}
	refStr, ok := ref.(string)
	if !ok {
		return fmt.Errorf("referenceLocation must be a string")
	}
	g := &Geo{ReferenceLocation: refStr}
	for key, dst := range map[string]*string{"unit": &g.Unit, "mode": &g.Mode, "distanceType": &g.DistanceType} {
		if v, ok := obj[key]; ok {
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("%s must be a string", key)
			}
			*dst = str
		}
	}
	if v, ok := obj["ignoreUnmapped"]; ok {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("ignoreUnmapped must be a boolean")
		}
		g.IgnoreUnmapped = b
	}
	s.Geo = g
	return nil
}
