// Package apierr defines the typed error taxonomy shared by every upstream
// service and the gateway router.
//
// Deep code constructs an *Error at the failure site and lets it propagate
// unwrapped; pkg/handlerrt is the only place that turns one into an HTTP
// response, matching the "single converter" rule: no handler writes its own
// error response.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is one of the fixed taxonomy values from the specification.
type Code string

const (
	CodeInternal               Code = "INTERNAL_ERROR"
	CodeNotFound               Code = "NOT_FOUND"
	CodeInvalidRequest         Code = "INVALID_REQUEST"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeRateLimitExceeded      Code = "RATE_LIMIT_EXCEEDED"
	CodeUpstreamAPIError       Code = "UPSTREAM_API_ERROR"
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeInvalidContractAddress Code = "INVALID_CONTRACT_ADDRESS"
	CodeInvalidFunction        Code = "INVALID_FUNCTION"
	CodeInvalidArguments       Code = "INVALID_ARGUMENTS"
	CodeCache                  Code = "CACHE_ERROR"
	CodeConfig                 Code = "CONFIG_ERROR"
	CodeTimeout                Code = "TIMEOUT_ERROR"
)

var httpStatus = map[Code]int{
	CodeInternal:               http.StatusInternalServerError,
	CodeNotFound:               http.StatusNotFound,
	CodeInvalidRequest:         http.StatusBadRequest,
	CodeUnauthorized:           http.StatusUnauthorized,
	CodeRateLimitExceeded:      http.StatusTooManyRequests,
	CodeUpstreamAPIError:       http.StatusBadGateway,
	CodeValidation:             http.StatusBadRequest,
	CodeInvalidContractAddress: http.StatusBadRequest,
	CodeInvalidFunction:        http.StatusBadRequest,
	CodeInvalidArguments:       http.StatusBadRequest,
	CodeCache:                  http.StatusInternalServerError,
	CodeConfig:                 http.StatusInternalServerError,
	CodeTimeout:                http.StatusInternalServerError,
}

// Error is a typed, user-facing failure. It carries enough structure for
// pkg/handlerrt to render the §6 error envelope without re-deriving
// anything from a generic error string.
type Error struct {
	Code          Code
	Message       string
	Details       map[string]any
	CorrelationID string
	Cause         error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code associated with the error's code.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs an *Error with the given code and templated message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error that preserves cause for %w-style unwrapping.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithDetails attaches a details map and returns the same error for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// As is a convenience wrapper over errors.As for *Error.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Retryable reports whether the request-queue should spend a retry budget
// on this failure class. Only UPSTREAM_API_ERROR and TIMEOUT_ERROR are
// retryable; everything else (validation, not-found, rate-limit) rejects
// immediately, per §7 "Propagation".
func Retryable(err error) bool {
	apiErr, ok := As(err)
	if !ok {
		// Unclassified errors are treated as upstream failures and are
		// retryable, matching §4.4.2.d "wrap non-typed errors as
		// UPSTREAM_API_ERROR".
		return true
	}
	switch apiErr.Code {
	case CodeUpstreamAPIError, CodeTimeout:
		return true
	default:
		return false
	}
}
