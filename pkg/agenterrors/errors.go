// Package agenterrors defines the unified error envelope every non-2xx
// HTTP response carries, plus the stable code constants the rest of the
// gateway maps failures onto.
package agenterrors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Stable error codes. These are part of the wire contract and must not
// change between releases.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeUnprocessable   = "UNPROCESSABLE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL_ERROR"
	CodeBackend5xx      = "BACKEND_5XX"
)

// Warning codes surfaced in the response body without failing the turn.
const (
	WarnTTSUnavailable  = "TTS_UNAVAILABLE"
	WarnSessionStore    = "SESSION_STORE_UNAVAILABLE"
	WarnLanguageDefault = "LANGUAGE_DETECTION_FALLBACK"
)

// Error is the envelope rendered as the body of every non-2xx response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	TraceID string `json:"traceId,omitempty"`
	Details any    `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithTraceID returns a shallow copy carrying the request trace id.
func (e *Error) WithTraceID(traceID string) *Error {
	cp := *e
	cp.TraceID = traceID
	return &cp
}

// WithCause attaches an underlying error for logging; the cause is
// never serialised to the client.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.cause = err
	return &cp
}

func New(code string, status int, format string, args ...any) *Error {
	return &Error{Code: code, Status: status, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return New(CodeBadRequest, http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(CodeUnauthorized, http.StatusUnauthorized, format, args...)
}

func PayloadTooLarge(format string, args ...any) *Error {
	return New(CodePayloadTooLarge, http.StatusRequestEntityTooLarge, format, args...)
}

// RateLimited carries the retry hint in Details as {"retryAfter": n}.
func RateLimited(retryAfterSec int) *Error {
	e := New(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded, retry in %ds", retryAfterSec)
	e.Details = map[string]int{"retryAfter": retryAfterSec}
	return e
}

func Internal(format string, args ...any) *Error {
	return New(CodeInternal, http.StatusInternalServerError, format, args...)
}

// AsError extracts an *Error from err's chain, or wraps err into an
// INTERNAL_ERROR envelope so handlers always have something renderable.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("unexpected server fault").WithCause(err)
}

// Warning is a non-fatal degradation notice attached to a successful
// turn response.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
