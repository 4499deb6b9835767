package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUnknownEntity signals an entity type without a registered mapping.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrMissingLocalizedCatalog signals an unresolvable localized catalog.
	ErrMissingLocalizedCatalog = errors.New("missing localized catalog")
	// ErrCategoryNotFound signals an unknown category.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrInvalidFilterField signals a filter on an unknown or unusable field.
	ErrInvalidFilterField = errors.New("invalid filter field")
	// ErrInvalidSortField signals a sort on an unknown or unusable field.
	ErrInvalidSortField = errors.New("invalid sort field")
	// ErrInvalidOperatorCombination signals conflicting or missing filter operators.
	ErrInvalidOperatorCombination = errors.New("invalid filter operator combination")
	// ErrInvalidDateFormat signals a date filter value in an unsupported format.
	ErrInvalidDateFormat = errors.New("invalid date format")
	// ErrMultiSortNotAllowed signals more than one primary sort field.
	ErrMultiSortNotAllowed = errors.New("multi sort not allowed")
	// ErrInvalidRequest signals a malformed search request.
	ErrInvalidRequest = errors.New("invalid request")
)

// UnknownEntityError wraps ErrUnknownEntity with the requested entity type.
type UnknownEntityError struct {
	EntityType string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("Entity type '%s' does not exist.", e.EntityType)
}

func (e *UnknownEntityError) Unwrap() error { return ErrUnknownEntity }

// MissingLocalizedCatalogError wraps ErrMissingLocalizedCatalog.
type MissingLocalizedCatalogError struct {
	Catalog string
}

func (e *MissingLocalizedCatalogError) Error() string {
	if e.Catalog == "" {
		return "A localized catalog is required."
	}
	return fmt.Sprintf("Missing localized catalog '%s'.", e.Catalog)
}

func (e *MissingLocalizedCatalogError) Unwrap() error { return ErrMissingLocalizedCatalog }

// CategoryNotFoundError wraps ErrCategoryNotFound.
type CategoryNotFoundError struct {
	CategoryID string
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("The category '%s' does not exist.", e.CategoryID)
}

func (e *CategoryNotFoundError) Unwrap() error { return ErrCategoryNotFound }

// InvalidFilterFieldError wraps ErrInvalidFilterField.
// Suggestion is empty when no close field exists.
type InvalidFilterFieldError struct {
	Field      string
	Suggestion string
	Reason     string
}

func (e *InvalidFilterFieldError) Error() string {
	return fieldMessage("filter", e.Field, e.Reason, e.Suggestion)
}

func (e *InvalidFilterFieldError) Unwrap() error { return ErrInvalidFilterField }

// InvalidSortFieldError wraps ErrInvalidSortField.
type InvalidSortFieldError struct {
	Field      string
	Suggestion string
	Reason     string
}

func (e *InvalidSortFieldError) Error() string {
	return fieldMessage("sort", e.Field, e.Reason, e.Suggestion)
}

func (e *InvalidSortFieldError) Unwrap() error { return ErrInvalidSortField }

func fieldMessage(kind, field, reason, suggestion string) string {
	var b strings.Builder
	if reason == "" {
		fmt.Fprintf(&b, "The %s field '%s' does not exist.", kind, field)
	} else {
		fmt.Fprintf(&b, "The %s field '%s' %s.", kind, field, reason)
	}
	if suggestion != "" {
		fmt.Fprintf(&b, " Did you mean '%s'?", suggestion)
	}
	return b.String()
}

// InvalidFilterOperatorCombinationError wraps ErrInvalidOperatorCombination.
// Operators lists the conflicting (or missing) operators in the order they are reported.
type InvalidFilterOperatorCombinationError struct {
	Field     string
	Operators []string
	Message   string
}

func (e *InvalidFilterOperatorCombinationError) Error() string {
	return fmt.Sprintf("Filter argument %s: %s", e.Field, e.Message)
}

func (e *InvalidFilterOperatorCombinationError) Unwrap() error { return ErrInvalidOperatorCombination }

// InvalidDateFormatError wraps ErrInvalidDateFormat.
type InvalidDateFormatError struct {
	Field    string
	Operator string
	Value    string
}

func (e *InvalidDateFormatError) Error() string {
	return fmt.Sprintf("Filter argument %s: Invalid date format for operator '%s' and value '%s'.",
		e.Field, e.Operator, e.Value)
}

func (e *InvalidDateFormatError) Unwrap() error { return ErrInvalidDateFormat }

// MultiSortNotAllowedError wraps ErrMultiSortNotAllowed.
type MultiSortNotAllowedError struct {
	Fields []string
}

func (e *MultiSortNotAllowedError) Error() string {
	quoted := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		quoted[i] = "'" + f + "'"
	}
	return fmt.Sprintf("Only one sort field is allowed, got %s.", strings.Join(quoted, ", "))
}

func (e *MultiSortNotAllowedError) Unwrap() error { return ErrMultiSortNotAllowed }

// InvalidRequestError wraps ErrInvalidRequest with a user-facing reason.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string { return e.Reason }

func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

// NewInvalidRequest creates an invalid request error.
func NewInvalidRequest(format string, args ...any) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}
