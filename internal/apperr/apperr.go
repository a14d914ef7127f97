// Package apperr defines coded application errors that map onto HTTP statuses.
//
// Services return these errors and the web layer renders them:
//
//	if !consent.Allows(c, src) {
//	    return apperr.Forbidden("voice analysis requires consent")
//	}
//
//	var e *apperr.Error
//	if errors.As(err, &e) {
//	    status = e.HTTPStatus()
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeNotFound    Code = "NOT_FOUND"
	CodeForbidden   Code = "FORBIDDEN"
	CodeValidation  Code = "VALIDATION"
	CodeRateLimited Code = "RATE_LIMITED"
	CodeUnavailable Code = "UNAVAILABLE"
	CodeInternal    Code = "INTERNAL"
)

// HTTPStatus returns the HTTP status code for c.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is an application error with a code, message and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// Sentinels for errors.Is.
var (
	ErrNotFound    = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden   = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation  = &Error{Code: CodeValidation, Message: "validation error"}
	ErrUnavailable = &Error{Code: CodeUnavailable, Message: "upstream unavailable"}
)

func NotFound(msg string) *Error    { return &Error{Code: CodeNotFound, Message: msg} }
func Forbidden(msg string) *Error   { return &Error{Code: CodeForbidden, Message: msg} }
func Validation(msg string) *Error  { return &Error{Code: CodeValidation, Message: msg} }
func RateLimited(msg string) *Error { return &Error{Code: CodeRateLimited, Message: msg} }
func Internal(msg string) *Error    { return &Error{Code: CodeInternal, Message: msg} }

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// CodeOf returns the code carried by err, or CodeInternal when err is not an
// *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
