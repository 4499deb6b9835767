package mapping

import (
	"fmt"
	"strings"
)

// Type is the document type of a mapping field.
type Type string

// Field type constants.
const (
	Text      Type = "text"
	Keyword   Type = "keyword"
	Integer   Type = "int"
	Float     Type = "float"
	Boolean   Type = "boolean"
	Date      Type = "date"
	Price     Type = "price"
	Stock     Type = "stock"
	Category  Type = "category"
	Reference Type = "reference"
	// Nested is the composite type: its dotted children live in sub-documents.
	Nested   Type = "nested"
	GeoPoint Type = "geo_point"
)

// IsValid reports whether t is a known field type.
func (t Type) IsValid() bool {
	switch t {
	case Text, Keyword, Integer, Float, Boolean, Date, Price, Stock,
		Category, Reference, Nested, GeoPoint:
		return true
	}
	return false
}

// IsNumeric reports whether t holds numbers that support ranges.
func (t Type) IsNumeric() bool {
	return t == Integer || t == Float || t == Price
}

// IsTextLike reports whether t holds strings filtered by exact value or full text.
func (t Type) IsTextLike() bool {
	return t == Text || t == Keyword || t == Reference
}

// keywordSuffix is the exact-value sub-field of analyzed text fields.
const keywordSuffix = ".keyword"

// Props carries the optional flags of a field.
type Props struct {
	Label             string
	Searchable        bool
	Filterable        bool
	Sortable          bool
	Spannable         bool
	UsedInAggregation bool
	// Weight is the full-text boost; values below 1 are raised to 1.
	Weight int
}

// Field is an immutable value object describing one addressable document field.
type Field struct {
	code       string
	fieldType  Type
	props      Props
	nestedPath string
}

// NewField validates and creates a Field.
func NewField(code string, ft Type, p Props) (Field, error) {
	if code == "" {
		return Field{}, fmt.Errorf("field code is required")
	}
	if strings.Contains(code, PublicSeparator) {
		return Field{}, fmt.Errorf("field code %q must not contain %q", code, PublicSeparator)
	}
	if strings.HasPrefix(code, ".") || strings.HasSuffix(code, ".") {
		return Field{}, fmt.Errorf("field code %q has an empty path segment", code)
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, code)
	}
	return ReconstructField(code, ft, p), nil
}

// ReconstructField creates a Field without validation (storage hydration).
func ReconstructField(code string, ft Type, p Props) Field {
	if p.Weight < 1 {
		p.Weight = 1
	}
	if p.Label == "" {
		p.Label = code
	}
	return Field{code: code, fieldType: ft, props: p}
}

// Code returns the internal (dotted) field code.
func (f Field) Code() string { return f.code }

// PublicCode returns the field code as exposed to API clients.
func (f Field) PublicCode() string { return PublicName(f.code) }

// Type returns the field type.
func (f Field) Type() Type { return f.fieldType }

// Label returns the display label.
func (f Field) Label() string { return f.props.Label }

// IsSearchable reports whether the field takes part in full-text search.
func (f Field) IsSearchable() bool { return f.props.Searchable }

// IsFilterable reports whether the field can be filtered on.
func (f Field) IsFilterable() bool { return f.props.Filterable }

// IsSortable reports whether the field can be sorted on.
func (f Field) IsSortable() bool { return f.props.Sortable }

// IsSpannable reports whether the field supports span queries.
func (f Field) IsSpannable() bool { return f.props.Spannable }

// IsUsedInAggregation reports whether the field is exposed as a facet.
func (f Field) IsUsedInAggregation() bool { return f.props.UsedInAggregation }

// Weight returns the full-text boost.
func (f Field) Weight() int { return f.props.Weight }

// IsNested reports whether the field lives inside a nested sub-document.
func (f Field) IsNested() bool { return f.nestedPath != "" }

// NestedPath returns the nested document path, or "" for root fields.
func (f Field) NestedPath() string { return f.nestedPath }

// ExactPath returns the document path used for term filters, sorts and aggregations.
func (f Field) ExactPath() string {
	if f.fieldType == Text {
		return f.code + keywordSuffix
	}
	return f.code
}

// PublicSeparator replaces "." in field codes exposed to API clients.
const PublicSeparator = "__"

// PublicName converts an internal field code to its public form.
func PublicName(code string) string {
	return strings.ReplaceAll(code, ".", PublicSeparator)
}

// InternalName converts a public field name to its internal dotted code.
func InternalName(name string) string {
	return strings.ReplaceAll(name, PublicSeparator, ".")
}
