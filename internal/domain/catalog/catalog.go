package catalog

import (
	"fmt"
	"strings"
)

// LocalizedCatalog is a (catalog, locale) pair scoping one set of search indices.
type LocalizedCatalog struct {
	id          string
	code        string
	name        string
	locale      string
	catalogCode string
}

// New validates and creates a LocalizedCatalog.
func New(id, code, name, locale, catalogCode string) (LocalizedCatalog, error) {
	if id == "" {
		return LocalizedCatalog{}, fmt.Errorf("localized catalog id is required")
	}
	if code == "" {
		return LocalizedCatalog{}, fmt.Errorf("localized catalog code is required")
	}
	return Reconstruct(id, code, name, locale, catalogCode), nil
}

// Reconstruct creates a LocalizedCatalog without validation (storage hydration).
func Reconstruct(id, code, name, locale, catalogCode string) LocalizedCatalog {
	return LocalizedCatalog{id: id, code: code, name: name, locale: locale, catalogCode: catalogCode}
}

// ID returns the localized catalog identifier.
func (c LocalizedCatalog) ID() string { return c.id }

// Code returns the localized catalog code (e.g. b2c_fr).
func (c LocalizedCatalog) Code() string { return c.code }

// Name returns the display name.
func (c LocalizedCatalog) Name() string { return c.name }

// Locale returns the locale code (e.g. fr_FR).
func (c LocalizedCatalog) Locale() string { return c.locale }

// CatalogCode returns the parent catalog code.
func (c LocalizedCatalog) CatalogCode() string { return c.catalogCode }

// IndexAlias returns the alias of the live index of entityType: <prefix>_<code>_<entity>.
func (c LocalizedCatalog) IndexAlias(prefix, entityType string) string {
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, c.code, entityType)
	return strings.ToLower(strings.Join(parts, "_"))
}
