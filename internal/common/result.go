package common

import (
	"errors"
	"net/http"
)

// Result is the uniform envelope returned by every blob operation.
// StatusCode follows HTTP semantics (200, 400, 404, 500) even when no
// HTTP layer is involved.
type Result[T any] struct {
	Data       T      `json:"data"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"statusCode"`
}

// OK wraps data into a successful envelope.
func OK[T any](data T) Result[T] {
	return Result[T]{Data: data, Success: true, StatusCode: http.StatusOK}
}

// Fail builds a failed envelope. The status code is derived from err and the
// message carries err's text for diagnostics.
func Fail[T any](err error) Result[T] {
	return Result[T]{Success: false, Message: err.Error(), StatusCode: StatusFromError(err)}
}

// FailWith builds a failed envelope with an explicit status code.
func FailWith[T any](code int, msg string) Result[T] {
	return Result[T]{Success: false, Message: msg, StatusCode: code}
}

// Err converts a failed envelope back into an error matching the sentinel
// for its status code, so callers can use errors.Is. A successful envelope
// returns nil.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	sentinel := ErrorFromStatus(r.StatusCode)
	if r.Message == "" || r.Message == sentinel.Error() {
		return sentinel
	}
	return &statusError{sentinel: sentinel, msg: r.Message}
}

type statusError struct {
	sentinel error
	msg      string
}

func (e *statusError) Error() string { return e.msg }
func (e *statusError) Unwrap() error { return e.sentinel }

// StatusFromError maps sentinel errors to status codes. Anything unknown is
// an internal error.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrorBadRequest), errors.Is(err, ErrInlineTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, ErrorUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrorForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFromStatus is the inverse of StatusFromError for the codes it emits.
func ErrorFromStatus(code int) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrorNotFound
	case http.StatusBadRequest:
		return ErrorBadRequest
	case http.StatusUnauthorized:
		return ErrorUnauthorized
	case http.StatusForbidden:
		return ErrorForbidden
	default:
		return ErrorInternal
	}
}
