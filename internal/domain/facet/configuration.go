package facet

import (
	"fmt"

	"github.com/gally-search/gally/internal/domain/mapping"
)

// DisplayMode controls facet visibility.
type DisplayMode string

// Display modes.
const (
	DisplayAuto      DisplayMode = "auto"
	DisplayDisplayed DisplayMode = "displayed"
	DisplayHidden    DisplayMode = "hidden"
)

// IsValid reports whether m is a known display mode.
func (m DisplayMode) IsValid() bool {
	return m == DisplayAuto || m == DisplayDisplayed || m == DisplayHidden
}

// SortOrder controls bucket ordering.
type SortOrder string

// Bucket sort orders.
const (
	SortCount   SortOrder = "_count"
	SortTerm    SortOrder = "_key"
	SortNatural SortOrder = "natural"
)

// IsValid reports whether o is a known sort order.
func (o SortOrder) IsValid() bool {
	return o == SortCount || o == SortTerm || o == SortNatural
}

// Built-in defaults applied when no stored row provides a value.
const (
	DefaultCoverageRate = 90
	DefaultMaxSize      = 10
	DefaultSortOrder    = SortCount
	DefaultDisplayMode  = DisplayAuto
	DefaultPosition     = 0
	DefaultDateFormat   = "yyyy-MM"
)

// Row is a stored facet configuration. Nil attributes fall back to the next level.
// CategoryID nil marks the default (non category-scoped) row.
type Row struct {
	EntityType   string
	SourceField  string
	CategoryID   *string
	DisplayMode  *DisplayMode
	CoverageRate *int
	MaxSize      *int
	SortOrder    *SortOrder
	Position     *int
	Interval     *float64
	Format       *string
}

// Validate checks the row attributes.
func (r Row) Validate() error {
	if r.EntityType == "" || r.SourceField == "" {
		return fmt.Errorf("entity type and source field are required")
	}
	if r.DisplayMode != nil && !r.DisplayMode.IsValid() {
		return fmt.Errorf("invalid display mode %q", *r.DisplayMode)
	}
	if r.SortOrder != nil && !r.SortOrder.IsValid() {
		return fmt.Errorf("invalid sort order %q", *r.SortOrder)
	}
	if r.CoverageRate != nil && (*r.CoverageRate < 0 || *r.CoverageRate > 100) {
		return fmt.Errorf("coverage rate must be between 0 and 100, got %d", *r.CoverageRate)
	}
	if r.MaxSize != nil && *r.MaxSize < 1 {
		return fmt.Errorf("max size must be positive, got %d", *r.MaxSize)
	}
	if r.Interval != nil && *r.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	return nil
}

// Settings is a fully resolved set of facet attributes.
type Settings struct {
	DisplayMode  DisplayMode `json:"displayMode"`
	CoverageRate int         `json:"coverageRate"`
	MaxSize      int         `json:"maxSize"`
	SortOrder    SortOrder   `json:"sortOrder"`
	Position     int         `json:"position"`
	Interval     float64     `json:"interval,omitempty"`
	Format       string      `json:"format,omitempty"`
}

// Builtin returns the built-in settings.
func Builtin() Settings {
	return Settings{
		DisplayMode:  DefaultDisplayMode,
		CoverageRate: DefaultCoverageRate,
		MaxSize:      DefaultMaxSize,
		SortOrder:    DefaultSortOrder,
		Position:     DefaultPosition,
		Format:       DefaultDateFormat,
	}
}

// overlay returns s with every non-nil attribute of r applied.
func (s Settings) overlay(r *Row) Settings {
	if r == nil {
		return s
	}
	if r.DisplayMode != nil {
		s.DisplayMode = *r.DisplayMode
	}
	if r.CoverageRate != nil {
		s.CoverageRate = *r.CoverageRate
	}
	if r.MaxSize != nil {
		s.MaxSize = *r.MaxSize
	}
	if r.SortOrder != nil {
		s.SortOrder = *r.SortOrder
	}
	if r.Position != nil {
		s.Position = *r.Position
	}
	if r.Interval != nil {
		s.Interval = *r.Interval
	}
	if r.Format != nil {
		s.Format = *r.Format
	}
	return s
}

// Configuration is the resolved facet configuration of one source field.
type Configuration struct {
	field      mapping.Field
	categoryID *string
	settings   Settings
	defaults   Settings
	isVirtual  bool
}

// Resolve merges category row > default row > built-ins, attribute by attribute.
// Either row may be nil. The configuration is virtual when no row exists for its own scope.
func Resolve(field mapping.Field, categoryID *string, categoryRow, defaultRow *Row) Configuration {
	defaults := Builtin().overlay(defaultRow)
	settings := defaults
	virtual := defaultRow == nil
	if categoryID != nil {
		settings = defaults.overlay(categoryRow)
		virtual = categoryRow == nil
	}
	return Configuration{
		field:      field,
		categoryID: categoryID,
		settings:   settings,
		defaults:   defaults,
		isVirtual:  virtual,
	}
}

// Field returns the source field.
func (c Configuration) Field() mapping.Field { return c.field }

// CategoryID returns the category scope (nil for the default scope).
func (c Configuration) CategoryID() *string { return c.categoryID }

// Settings returns the effective settings.
func (c Configuration) Settings() Settings { return c.settings }

// Defaults returns the settings of the default scope.
func (c Configuration) Defaults() Settings { return c.defaults }

// IsVirtual reports whether no stored row exists for this scope.
func (c Configuration) IsVirtual() bool { return c.isVirtual }

// BucketType returns the bucket type derived from the field type and settings.
func (c Configuration) BucketType() BucketType {
	return BucketTypeFor(c.field.Type(), c.settings.Interval)
}

// WithMaxSize returns a copy of c listing up to n options.
func (c Configuration) WithMaxSize(n int) Configuration {
	c.settings.MaxSize = n
	return c
}
