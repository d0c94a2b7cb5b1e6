package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// timeoutError mimics a transport-level timeout (net.Error with Timeout true).
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		resp     *http.Response
		err      error
		wantKind ErrorKind
	}{
		{
			name:     "context cancelled",
			err:      context.Canceled,
			wantKind: KindCancelled,
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			wantKind: KindTimeout,
		},
		{
			name:     "net timeout",
			err:      timeoutError{},
			wantKind: KindTimeout,
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp: connection refused"),
			wantKind: KindConnectionFailure,
		},
		{
			name:     "429",
			resp:     &http.Response{StatusCode: 429, Header: http.Header{}},
			wantKind: KindRateLimited,
		},
		{
			name:     "404",
			resp:     &http.Response{StatusCode: 404, Header: http.Header{}},
			wantKind: KindClientError,
		},
		{
			name:     "400",
			resp:     &http.Response{StatusCode: 400, Header: http.Header{}},
			wantKind: KindClientError,
		},
		{
			name:     "500",
			resp:     &http.Response{StatusCode: 500, Header: http.Header{}},
			wantKind: KindServerError,
		},
		{
			name:     "503",
			resp:     &http.Response{StatusCode: 503, Header: http.Header{}},
			wantKind: KindServerError,
		},
		{
			name:     "200 success",
			resp:     &http.Response{StatusCode: 200, Header: http.Header{}},
			wantKind: "",
		},
		{
			name:     "304 success",
			resp:     &http.Response{StatusCode: 304, Header: http.Header{}},
			wantKind: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Classify(tt.resp, tt.err)
			if outcome.Kind != tt.wantKind {
				t.Errorf("Classify() kind = %q, want %q", outcome.Kind, tt.wantKind)
			}
		})
	}
}

// Classification is a pure function: same input, same output.
func TestClassify_Deterministic(t *testing.T) {
	resp := &http.Response{StatusCode: 502, Header: http.Header{}}

	first := Classify(resp, nil)
	for i := 0; i < 10; i++ {
		if got := Classify(resp, nil); got != first {
			t.Fatalf("Classify() not deterministic: %v != %v", got, first)
		}
	}
}

func TestClassify_RetryAfterSeconds(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")
	resp := &http.Response{StatusCode: 429, Header: header}

	outcome := Classify(resp, nil)
	if outcome.Kind != KindRateLimited {
		t.Fatalf("kind = %q, want %q", outcome.Kind, KindRateLimited)
	}
	if outcome.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", outcome.RetryAfter)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"absent", "", 0},
		{"seconds", "30", 30 * time.Second},
		{"negative seconds", "-5", 0},
		{"garbage", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.value != "" {
				header.Set("Retry-After", tt.value)
			}
			if got := parseRetryAfter(header); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter_HTTPDate(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", time.Now().Add(10*time.Second).UTC().Format(http.TimeFormat))

	got := parseRetryAfter(header)
	if got <= 0 || got > 11*time.Second {
		t.Errorf("parseRetryAfter(http-date) = %v, want ~10s", got)
	}
}
