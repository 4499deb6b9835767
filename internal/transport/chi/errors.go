package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gally-search/gally/internal/domain"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeNotFound           ErrorCode = "not_found"
	CodeEntityNotFound     ErrorCode = "entity_not_found"
	CodeCatalogNotFound    ErrorCode = "catalog_not_found"
	CodeCategoryNotFound   ErrorCode = "category_not_found"
	CodeInvalidFilter      ErrorCode = "invalid_filter"
	CodeInvalidSort        ErrorCode = "invalid_sort"
	CodeMultiSortForbidden ErrorCode = "multi_sort_not_allowed"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrUnknownEntity, http.StatusNotFound, CodeEntityNotFound),
		sentinelHandler(domain.ErrMissingLocalizedCatalog, http.StatusNotFound, CodeCatalogNotFound),
		sentinelHandler(domain.ErrCategoryNotFound, http.StatusNotFound, CodeCategoryNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInvalidFilterField, http.StatusBadRequest, CodeInvalidFilter),
		sentinelHandler(domain.ErrInvalidOperatorCombination, http.StatusBadRequest, CodeInvalidFilter),
		sentinelHandler(domain.ErrInvalidDateFormat, http.StatusBadRequest, CodeInvalidFilter),
		sentinelHandler(domain.ErrInvalidSortField, http.StatusBadRequest, CodeInvalidSort),
		sentinelHandler(domain.ErrMultiSortNotAllowed, http.StatusBadRequest, CodeMultiSortForbidden),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
	}
}

var sentinels = []error{
	domain.ErrNotFound,
	domain.ErrUnknownEntity,
	domain.ErrMissingLocalizedCatalog,
	domain.ErrCategoryNotFound,
	domain.ErrInvalidFilterField,
	domain.ErrInvalidSortField,
	domain.ErrInvalidOperatorCombination,
	domain.ErrInvalidDateFormat,
	domain.ErrMultiSortNotAllowed,
	domain.ErrInvalidRequest,
}

func isSentinel(err error) bool {
	for _, s := range sentinels {
		if err == s { //nolint:errorlint // identity check against the sentinel list
			return true
		}
	}
	return false
}

// safeDomainMessage returns the user-facing message of a domain error without wrapping context.
// It is the message of the typed error that unwraps to a sentinel, or the sentinel itself.
func safeDomainMessage(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if isSentinel(e) {
			return e.Error()
		}
		if next := errors.Unwrap(e); next != nil && isSentinel(next) {
			return e.Error()
		}
	}
	return ""
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	if msg != "" {
		s.logger.Warn("domain error", zap.Error(err))
		for _, h := range s.errorHandlers {
			if h(w, err, msg) {
				return
			}
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
