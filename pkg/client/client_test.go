package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/aiod-client/pkg/ratelimit"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig("aiod-client-test/1.0")
	cfg.RateLimit = 0
	cfg.MaxRetries = 3
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("TestApp/1.0.0"),
		},
		{
			name:        "empty user agent",
			config:      Config{},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name:        "negative rate limit",
			config:      Config{UserAgent: "TestApp/1.0.0", RateLimit: -1},
			expectError: true,
			errorMsg:    "rate_limit must be >= 0 (got -1)",
		},
		{
			name:        "negative retries",
			config:      Config{UserAgent: "TestApp/1.0.0", MaxRetries: -2},
			expectError: true,
			errorMsg:    "max_retries must be >= 0 (got -2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestFetch_Headers(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"identifier": 1}`))
	}))
	defer server.Close()

	c := newTestClient(t)
	header := http.Header{}
	header.Set("Authorization", "Bearer abc")
	header.Set("Accept", "application/ld+json")

	resp, err := c.Fetch(context.Background(), server.URL+"/datasets/1", header, 0)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(resp.Body) != `{"identifier": 1}` {
		t.Errorf("Body = %q", resp.Body)
	}
	if got.Get("User-Agent") != "aiod-client-test/1.0" {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
	if got.Get("Authorization") != "Bearer abc" {
		t.Errorf("Authorization = %q", got.Get("Authorization"))
	}
	if got.Get("Accept") != "application/ld+json" {
		t.Errorf("Accept = %q", got.Get("Accept"))
	}
	if got.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID should be set")
	}
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Dataset 'b' not found in the database."}`))
	}))
	defer server.Close()

	_, err := newTestClient(t).Fetch(context.Background(), server.URL+"/datasets/b", nil, 0)

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("Fetch() error = %v, want *RemoteError", err)
	}
	if remoteErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", remoteErr.StatusCode)
	}
	if remoteErr.Message != "Dataset 'b' not found in the database." {
		t.Errorf("Message = %q", remoteErr.Message)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server calls = %d, want 1", n)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	resp, err := newTestClient(t).Fetch(context.Background(), server.URL+"/datasets", nil, 0)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("server calls = %d, want 3", n)
	}
}

func TestFetch_RetryExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(t).Fetch(context.Background(), server.URL+"/datasets/1", nil, 0)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Fetch() error = %v, want ErrRetryExhausted", err)
	}
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.ErrorClass != ErrorClassServer {
		t.Errorf("Fetch() error should carry the server RemoteError, got %v", err)
	}
}

func TestFetch_TimeoutIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	_, err := newTestClient(t).Fetch(context.Background(), server.URL+"/datasets/1", nil, 30*time.Millisecond)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Fetch() error = %v, want *TransportError", err)
	}
	if transportErr.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want network", transportErr.ErrorClass)
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(t).Fetch(context.Background(), url+"/datasets/1", nil, time.Second)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Fetch() error = %v, want *TransportError", err)
	}
}

func TestFetch_UpdatesRateTracker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("RateLimit-Remaining", "77")
		w.Header().Set("RateLimit-Reset", "60")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tracker := ratelimit.NewTracker(ratelimit.NewMemoryStore(), zerolog.Nop())
	cfg := DefaultConfig("aiod-client-test/1.0")
	cfg.RateTracker = tracker
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Fetch(context.Background(), server.URL+"/datasets/1", nil, 0); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	state, err := tracker.State(context.Background())
	if err != nil || state == nil {
		t.Fatalf("State() = %v, %v", state, err)
	}
	if state.Remaining != 77 {
		t.Errorf("Remaining = %d, want 77", state.Remaining)
	}
}

func TestRetryPolicyFor_Overrides(t *testing.T) {
	policy := retryPolicyFor(Config{MaxRetries: 5, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
	rc := policy(ErrorClassRateLimit)
	if rc.MaxAttempts != 5 || rc.InitialBackoff != time.Millisecond || rc.MaxBackoff != 2*time.Millisecond {
		t.Errorf("policy = %+v", rc)
	}

	defaults := retryPolicyFor(Config{})(ErrorClassServer)
	if defaults != RetryConfigForErrorClass(ErrorClassServer) {
		t.Errorf("zero config should keep class defaults, got %+v", defaults)
	}
}
