// Package apperr defines the typed errors returned by services and how they map to HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status mapping.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindInternal     Kind = "INTERNAL_ERROR"
)

// Error is an application error. Key is an i18n message key; Params fill its placeholders.
type Error struct {
	Kind   Kind
	Code   string
	Key    string
	Params map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Key, e.Err)
	}
	return e.Key
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithCode overrides the machine readable code sent to clients.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

func newError(kind Kind, key string, params map[string]string) *Error {
	return &Error{Kind: kind, Code: string(kind), Key: key, Params: params}
}

func NotFound(resource string) *Error {
	return newError(KindNotFound, "error.not_found", map[string]string{"resource": resource})
}

// NotFoundKey is a not-found error with its own message, for missing relations
// rather than missing resources.
func NotFoundKey(key string) *Error {
	return newError(KindNotFound, key, nil)
}

func Validation(key string, params map[string]string) *Error {
	return newError(KindValidation, key, params)
}

func Unauthorized(key string) *Error {
	return newError(KindUnauthorized, key, nil)
}

func Forbidden(key string) *Error {
	return newError(KindForbidden, key, nil)
}

func Conflict(key string, params map[string]string) *Error {
	return newError(KindConflict, key, params)
}

func TooManyRequests() *Error {
	return newError(KindRateLimited, "error.rate_limited", nil)
}

func Internal(err error) *Error {
	e := newError(KindInternal, "error.internal", nil)
	e.Err = err
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries an application error of the given kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// Status maps err to an HTTP status code. Unknown errors are 500.
func Status(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FieldError is one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Response is the JSON body of every error response.
type Response struct {
	Error  string       `json:"error"`
	Code   string       `json:"code"`
	Fields []FieldError `json:"fields,omitempty"`
}
