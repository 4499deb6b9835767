package mapping

import (
	"fmt"
	"sort"
	"strings"
)

// Mapping is the immutable field set of one entity type.
// Nested membership is resolved once at construction.
type Mapping struct {
	entityType string
	fields     []Field
	byCode     map[string]int
}

// New validates the field set and builds the lookup tables.
// A dotted code "a.b" is nested under "a" only when "a" is declared with the Nested type.
func New(entityType string, fields []Field) (*Mapping, error) {
	if entityType == "" {
		return nil, fmt.Errorf("entity type is required")
	}

	m := &Mapping{
		entityType: entityType,
		fields:     make([]Field, len(fields)),
		byCode:     make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := m.byCode[f.code]; dup {
			return nil, fmt.Errorf("duplicate field code %q in %s mapping", f.code, entityType)
		}
		m.byCode[f.code] = i
		m.fields[i] = f
	}

	for i := range m.fields {
		parent, _, dotted := strings.Cut(m.fields[i].code, ".")
		if !dotted {
			continue
		}
		if idx, ok := m.byCode[parent]; ok && m.fields[idx].fieldType == Nested {
			m.fields[i].nestedPath = parent
		}
	}

	return m, nil
}

// EntityType returns the entity type this mapping describes.
func (m *Mapping) EntityType() string { return m.entityType }

// Fields returns a copy of all fields in declaration order.
func (m *Mapping) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Field looks up a field by internal code or public name.
func (m *Mapping) Field(name string) (Field, bool) {
	if idx, ok := m.byCode[name]; ok {
		return m.fields[idx], true
	}
	if idx, ok := m.byCode[InternalName(name)]; ok {
		return m.fields[idx], true
	}
	return Field{}, false
}

// IsFieldKnown reports whether name resolves to a field of the mapping.
func (m *Mapping) IsFieldKnown(name string) bool {
	_, ok := m.Field(name)
	return ok
}

// FieldsOfType returns the fields of the given type in declaration order.
func (m *Mapping) FieldsOfType(t Type) []Field {
	var out []Field
	for _, f := range m.fields {
		if f.fieldType == t {
			out = append(out, f)
		}
	}
	return out
}

// SearchableFields returns full-text fields ordered by weight desc, then code.
func (m *Mapping) SearchableFields() []Field {
	var out []Field
	for _, f := range m.fields {
		if f.props.Searchable && f.fieldType != Nested {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].props.Weight != out[j].props.Weight {
			return out[i].props.Weight > out[j].props.Weight
		}
		return out[i].code < out[j].code
	})
	return out
}

// SortableFields returns the sortable fields in declaration order.
func (m *Mapping) SortableFields() []Field {
	var out []Field
	for _, f := range m.fields {
		if f.props.Sortable && f.fieldType != Nested {
			out = append(out, f)
		}
	}
	return out
}

// AggregableFields returns the fields exposed as facets in declaration order.
func (m *Mapping) AggregableFields() []Field {
	var out []Field
	for _, f := range m.fields {
		if f.props.Filterable && f.props.UsedInAggregation && f.fieldType != Nested {
			out = append(out, f)
		}
	}
	return out
}
