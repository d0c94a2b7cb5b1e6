// Package testutil provides testing utilities for the ISS client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock ISS endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockISS is a configurable mock ISS server for testing.
type MockISS struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	Offsets           []int
}

// NewMockISS creates a new mock ISS server.
func NewMockISS() *MockISS {
	mock := &MockISS{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if start := r.URL.Query().Get("start"); start != "" {
			if offset, err := strconv.Atoi(start); err == nil {
				mock.Offsets = append(mock.Offsets, offset)
			}
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockISS) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockISS) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockISS) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.Offsets = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockISS) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockISS) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockISS) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetOffsets returns the start= offsets seen, in arrival order.
func (m *MockISS) GetOffsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.Offsets...)
}

// defaultHandler responds with an empty tabular block.
func (m *MockISS) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"securities": {"columns": [], "data": []}}`))
}

// TabularBody builds an ISS payload with a single named block.
func TabularBody(block string, columns []string, data [][]any) string {
	payload := map[string]any{
		block: map[string]any{
			"columns": columns,
			"data":    data,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal tabular body: %v", err))
	}
	return string(encoded)
}

// NewPagedHandler serves a fixed row set sliced by the start/limit query
// parameters, mimicking ISS offset pagination.
func NewPagedHandler(block string, columns []string, data [][]any) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 100
		}
		if start < 0 {
			start = 0
		}

		end := start + limit
		if start > len(data) {
			start = len(data)
		}
		if end > len(data) {
			end = len(data)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(TabularBody(block, columns, data[start:end])))
	}
}

// NewFlakyHandler fails the first failures requests with failStatus, then
// delegates to the success response.
func NewFlakyHandler(failures int, failStatus int, success MockResponse) func(w http.ResponseWriter, r *http.Request) {
	var mu sync.Mutex
	seen := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen++
		fail := seen <= failures
		mu.Unlock()

		if fail {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(failStatus)
			w.Write([]byte(`{"error": "induced failure"}`))
			return
		}

		for key, value := range success.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(success.StatusCode)
		w.Write([]byte(success.Body))
	}
}

// NewRateLimitResponse creates a 429 response with a Retry-After hint.
func NewRateLimitResponse(retryAfterSeconds int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "too many requests"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfterSeconds),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
