// Package apperror carries the failure taxonomy shared by the payment
// pipeline: every error that leaves a component boundary has a Kind and a
// message that is safe to show to API callers.
package apperror

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindTransport       Kind = "transport_error"
	KindRateLimited     Kind = "rate_limited"
	KindProvider        Kind = "provider_error"
	KindInvalidResponse Kind = "invalid_response"
	KindParseFailure    Kind = "parse_failure"
	KindStore           Kind = "store_error"
	KindNotFound        Kind = "not_found"
	KindInternal        Kind = "internal_error"
)

type Error struct {
	Kind    Kind
	Message string
	// StatusCode is the upstream HTTP status when the error came from the provider.
	StatusCode int
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: err}
}

func WithStatus(kind Kind, statusCode int, message string) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: statusCode}
}

func WrapWithStatus(err error, kind Kind, statusCode int, message string) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: statusCode, cause: err}
}

func InvalidInput(format string, args ...interface{}) *Error {
	return Newf(KindInvalidInput, format, args...)
}

func ParseFailure(format string, args ...interface{}) *Error {
	return Newf(KindParseFailure, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return Newf(KindNotFound, format, args...)
}

func Store(err error, message string) *Error {
	return Wrap(err, KindStore, message)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal for untyped errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the provider call that produced err may succeed
// when repeated unchanged.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindRateLimited:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a kind onto the status code returned by this service's API.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindParseFailure:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTransport, KindProvider, KindInvalidResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the caller-safe description of err. Wrapped causes,
// provider bodies and credentials never appear in it.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
