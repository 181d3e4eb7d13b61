// Package apperr holds the error kinds shared by the catalog, stock, importer and
// order modules, and maps them onto HTTP status codes for the handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need to react to it.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindConcurrencyConflict Kind = "concurrency_conflict"
	KindImport              Kind = "import"
	KindConflict            Kind = "conflict"
	KindUnauthorized        Kind = "unauthorized"
	KindUnavailable         Kind = "unavailable"
	KindInternal            Kind = "internal"
)

// Kinded is implemented by every error type that belongs to the taxonomy.
type Kinded interface {
	error
	Kind() Kind
}

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed or missing field. Row is 1-based and only
// set for bulk imports.
type ValidationError struct {
	Row    int    `json:"row,omitempty"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Invalid builds a request-scoped ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Kind() Kind { return KindValidation }

// NotFoundError reports an unknown product or order id.
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

// NotFound builds a NotFoundError for the given resource.
func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Kind() Kind { return KindNotFound }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// KindOf returns the kind of the first taxonomy error in err's chain.
func KindOf(err error) Kind {
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// HTTPStatus maps err onto the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientStock, KindConcurrencyConflict, KindConflict:
		return http.StatusConflict
	case KindImport:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body renders err as a JSON-friendly map. Taxonomy errors carry their structured
// detail under "detail" so clients can point at the offending row, field or counter.
func Body(err error) map[string]any {
	body := map[string]any{"error": err.Error()}
	var k Kinded
	if errors.As(err, &k) {
		body["kind"] = k.Kind()
		body["detail"] = k
	}
	return body
}

// ConflictError reports a write that lost against concurrent state, such as a
// stale version or a duplicate id. Declare instances as package sentinels and
// match them with errors.Is.
type ConflictError struct {
	Message string `json:"message"`
}

// NewConflict returns a ConflictError sentinel.
func NewConflict(msg string) *ConflictError { return &ConflictError{Message: msg} }

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Kind() Kind { return KindConflict }

// UnauthorizedError reports a missing or rejected credential.
type UnauthorizedError struct {
	Reason string `json:"reason"`
}

func (e *UnauthorizedError) Error() string { return "unauthorized: " + e.Reason }

func (e *UnauthorizedError) Kind() Kind { return KindUnauthorized }
