// Package apperr defines the error taxonomy shared across the core
// components and the HTTP surface that maps it to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the abstract error kinds the core raises. Handlers map
// a Kind to an HTTP status once, instead of re-deriving it per call site.
type Kind string

const (
	NotFound         Kind = "not_found"
	Duplicate        Kind = "duplicate"
	Unauthenticated  Kind = "unauthenticated"
	PermissionDenied Kind = "permission_denied"
	InvalidInput     Kind = "invalid_input"
	ProviderTransient Kind = "provider_transient"
	Fatal            Kind = "fatal"
)

// Error wraps an abstract Kind with a human message and optional detail
// payload (e.g. the existing document id on a Duplicate).
type Error struct {
	Kind    Kind
	Message string
	Detail  any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around a lower-level cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetail attaches a detail payload (e.g. an existing resource id) and
// returns the same Error for chaining.
func (e *Error) WithDetail(detail any) *Error {
	e.Detail = detail
	return e
}

// As extracts an *Error from err, if any.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// HTTPStatus maps a Kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case Duplicate:
		return http.StatusConflict
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case InvalidInput:
		return http.StatusBadRequest
	case ProviderTransient:
		return http.StatusBadGateway
	case Fatal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

// Duplicatef builds a Duplicate error carrying the existing resource id.
func Duplicatef(existingID string, format string, args ...any) *Error {
	return New(Duplicate, fmt.Sprintf(format, args...)).WithDetail(map[string]string{"document_id": existingID})
}

// PermissionDeniedf builds a PermissionDenied error.
func PermissionDeniedf(format string, args ...any) *Error {
	return New(PermissionDenied, fmt.Sprintf(format, args...))
}

// InvalidInputf builds an InvalidInput error.
func InvalidInputf(format string, args ...any) *Error {
	return New(InvalidInput, fmt.Sprintf(format, args...))
}
