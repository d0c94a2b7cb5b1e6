package client

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorKind_Transient(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		transient bool
	}{
		{KindTimeout, true},
		{KindConnectionFailure, true},
		{KindRateLimited, true},
		{KindServerError, true},
		{KindClientError, false},
		{KindMalformedResponse, false},
		{KindCancelled, false},
		{KindPaginationLimit, false},
		{KindConfiguration, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Transient(); got != tt.transient {
				t.Errorf("Transient() = %v, want %v", got, tt.transient)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{
		Kind:       KindServerError,
		Endpoint:   "/iss/securities.json",
		StatusCode: 503,
		Attempts:   4,
		Elapsed:    1500 * time.Millisecond,
		Err:        ErrRetryExhausted,
	}

	msg := err.Error()
	for _, want := range []string{"server_error", "/iss/securities.json", "503", "4 attempts", "retry attempts exhausted"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("%w: timeout must be > 0", ErrInvalidConfig)
	err := &APIError{Kind: KindConfiguration, Err: inner}

	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("errors.Is should find ErrInvalidConfig through APIError")
	}
}

func TestKindOf(t *testing.T) {
	apiErr := &APIError{Kind: KindClientError, StatusCode: 404}
	wrapped := fmt.Errorf("fetch page: %w", apiErr)

	if got := KindOf(wrapped); got != KindClientError {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, KindClientError)
	}

	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}
