// Package apperr defines the error kinds surfaced by the diet planning core
// and how each maps onto an HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error by who is at fault and how callers should react.
type Kind string

const (
	KindInvalidInput              Kind = "InvalidInput"
	KindUnauthorized              Kind = "Unauthorized"
	KindForbidden                 Kind = "Forbidden"
	KindNotFound                  Kind = "NotFound"
	KindConflict                  Kind = "Conflict"
	KindGenerationTimeout         Kind = "GenerationTimeout"
	KindGenerationFailed          Kind = "GenerationFailed"
	KindNoJSONFound               Kind = "NoJsonFound"
	KindIncompleteOrMalformedJSON Kind = "IncompleteOrMalformedJson"
	KindSchemaViolation           Kind = "SchemaViolation"
	KindInternal                  Kind = "Internal"
)

// Error is a classified error. Message is safe to show to the caller for
// client-side kinds; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error that keeps err as its cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the caller-facing message of the first *Error in err's chain.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

// IsUpstream reports whether the kind blames the AI dependency rather than the caller.
func IsUpstream(kind Kind) bool {
	switch kind {
	case KindGenerationTimeout, KindGenerationFailed, KindNoJSONFound,
		KindIncompleteOrMalformedJSON, KindSchemaViolation:
		return true
	}
	return false
}

// HTTPStatus maps a kind onto a response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindGenerationTimeout:
		return http.StatusGatewayTimeout
	case KindGenerationFailed, KindNoJSONFound, KindIncompleteOrMalformedJSON, KindSchemaViolation:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
