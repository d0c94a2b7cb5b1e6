package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finwerk/moexiss/internal/testutil"
	"github.com/finwerk/moexiss/pkg/client"
)

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"client error", &client.APIError{Kind: client.KindClientError, StatusCode: 404}, http.StatusBadRequest},
		{"rate limited", &client.APIError{Kind: client.KindRateLimited, StatusCode: 429}, http.StatusTooManyRequests},
		{"timeout", &client.APIError{Kind: client.KindTimeout}, http.StatusGatewayTimeout},
		{"cancelled", &client.APIError{Kind: client.KindCancelled}, 499},
		{"server error", &client.APIError{Kind: client.KindServerError, StatusCode: 503}, http.StatusBadGateway},
		{"plain error", io.EOF, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func newProxyClient(t *testing.T, mock *testutil.MockISS) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig("iss-proxy-test/0.1.0")
	cfg.BaseURL = mock.URL()
	cfg.RateLimitDelay = 0
	cfg.MaxRetries = 0
	cfg.InitialBackoff = time.Millisecond

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return c
}

func TestProxyHandler_PassThrough(t *testing.T) {
	mock := testutil.NewMockISS()
	defer mock.Close()

	body := testutil.TabularBody("engines", []string{"id", "name"}, [][]any{{1.0, "stock"}})
	mock.SetResponse("/iss/engines.json", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	})

	handler := proxyHandler(newProxyClient(t, mock))

	req := httptest.NewRequest(http.MethodGet, "/iss/engines.json?iss.meta=off", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if rec.Body.String() != body {
		t.Errorf("body = %q, want the upstream body unchanged", rec.Body.String())
	}
}

func TestProxyHandler_RejectsNonJSON(t *testing.T) {
	mock := testutil.NewMockISS()
	defer mock.Close()

	handler := proxyHandler(newProxyClient(t, mock))

	req := httptest.NewRequest(http.MethodGet, "/iss/engines.xml", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("request count = %d, want 0 (rejected before upstream)", mock.GetRequestCount())
	}
}

func TestProxyHandler_UpstreamErrorMapping(t *testing.T) {
	mock := testutil.NewMockISS()
	defer mock.Close()

	mock.SetResponse("/iss/securities.json", testutil.MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "unknown endpoint"}`,
	})

	handler := proxyHandler(newProxyClient(t, mock))

	req := httptest.NewRequest(http.MethodGet, "/iss/securities.json", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an upstream 4xx", rec.Code)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ISS_PROXY_TEST_VAR", "set")

	if got := getEnv("ISS_PROXY_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("getEnv(set var) = %q, want set", got)
	}
	if got := getEnv("ISS_PROXY_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("getEnv(unset var) = %q, want fallback", got)
	}
}
