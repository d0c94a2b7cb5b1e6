package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrInvalidConfig is returned when Config validation fails in New.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorKind is the closed classification of a failed request outcome.
// Every failed attempt maps to exactly one kind.
type ErrorKind string

const (
	// KindTimeout represents a per-attempt deadline that elapsed before a
	// complete response arrived.
	KindTimeout ErrorKind = "timeout"

	// KindConnectionFailure represents transport-level failures where no
	// usable response was obtained (refused, reset, DNS).
	KindConnectionFailure ErrorKind = "connection_failure"

	// KindRateLimited represents HTTP 429 responses.
	KindRateLimited ErrorKind = "rate_limited"

	// KindClientError represents 4xx responses other than 429.
	KindClientError ErrorKind = "client_error"

	// KindServerError represents 5xx responses.
	KindServerError ErrorKind = "server_error"

	// KindMalformedResponse represents a 2xx response whose body does not
	// decode into the expected ISS block structure.
	KindMalformedResponse ErrorKind = "malformed_response"

	// KindCancelled represents caller-initiated cancellation.
	KindCancelled ErrorKind = "cancelled"

	// KindPaginationLimit represents a pagination run that exceeded the
	// configured maximum row guard.
	KindPaginationLimit ErrorKind = "pagination_limit_exceeded"

	// KindConfiguration represents invalid configuration detected at
	// construction time.
	KindConfiguration ErrorKind = "configuration"
)

// Transient reports whether the kind is eligible for retry under the policy
// budget. All other kinds are terminal on the first occurrence.
func (k ErrorKind) Transient() bool {
	switch k {
	case KindTimeout, KindConnectionFailure, KindRateLimited, KindServerError:
		return true
	default:
		return false
	}
}

// APIError is the terminal failure surfaced to callers. It carries the
// classification plus enough context (endpoint, attempts, elapsed, last
// status/body) to diagnose without re-running the request.
type APIError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
	Attempts   int
	Elapsed    time.Duration
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("iss %s error", e.Kind)
	if e.Endpoint != "" {
		msg += fmt.Sprintf(" (endpoint %s)", e.Endpoint)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts in %v", e.Attempts, e.Elapsed.Round(time.Millisecond))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err. Returns the empty kind when err is
// not an *APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}
