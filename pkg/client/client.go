// Package client provides the HTTP transport used to talk to the catalogue:
// GET requests with rate limiting, retries with backoff, error
// classification and Prometheus instrumentation.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/aiod-client/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for catalogue client operations.
var (
	aiodRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aiod_requests_total",
		Help: "Total catalogue requests by status",
	}, []string{"status"})

	aiodRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aiod_request_duration_seconds",
		Help:    "Catalogue request duration in seconds, retries included",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	aiodErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aiod_errors_total",
		Help: "Total catalogue request errors by class",
	}, []string{"class"})

	aiodRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aiod_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	aiodRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aiod_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	aiodRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aiod_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// maxBodyBytes caps the size of a response body read into memory.
const maxBodyBytes = 64 << 20

// Response is a fully read catalogue response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header sent with every request.
	UserAgent string

	// Timeout applied per request when the caller passes none.
	Timeout time.Duration

	// Rate limiting (requests per second, 0 disables)
	RateLimit float64
	Burst     int

	// RateTracker observes server quota headers (optional).
	RateTracker *ratelimit.Tracker

	// Retry overrides; zero values keep the per-class defaults.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		RateLimit: 20,
		Burst:     10,
	}
}

// Client performs catalogue GET requests.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	tracker    *ratelimit.Tracker
	retry      retryPolicy
	config     Config
	logger     zerolog.Logger
}

// New creates a new catalogue client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %v)", cfg.RateLimit)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	logger := log.With().Str("component", "aiod-client").Logger()

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		httpClient: &http.Client{},
		limiter:    limiter,
		tracker:    cfg.RateTracker,
		retry:      retryPolicyFor(cfg),
		config:     cfg,
		logger:     logger,
	}, nil
}

// retryPolicyFor applies the config's retry overrides on top of the per-class defaults.
func retryPolicyFor(cfg Config) retryPolicy {
	return func(class ErrorClass) RetryConfig {
		rc := RetryConfigForErrorClass(class)
		if cfg.MaxRetries > 0 {
			rc.MaxAttempts = cfg.MaxRetries
		}
		if cfg.InitialBackoff > 0 {
			rc.InitialBackoff = cfg.InitialBackoff
		}
		if cfg.MaxBackoff > 0 {
			rc.MaxBackoff = cfg.MaxBackoff
		}
		return rc
	}
}

// Fetch performs an idempotent GET with rate limiting and retries.
// A 2xx response is returned as is; anything else is an error: *RemoteError
// for non-2xx statuses, *TransportError for everything below HTTP.
func (c *Client) Fetch(ctx context.Context, rawURL string, header http.Header, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	startTime := time.Now()
	defer func() {
		aiodRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	var resp *Response
	err := retryWithBackoff(ctx, c.retry, func() error {
		var attemptErr error
		resp, attemptErr = c.attempt(ctx, rawURL, header)
		return attemptErr
	}, classifyError)

	if err != nil {
		class := classifyError(err)
		aiodErrorsTotal.WithLabelValues(string(class)).Inc()

		var remoteErr *RemoteError
		var transportErr *TransportError
		if errors.As(err, &remoteErr) || errors.As(err, &transportErr) {
			return nil, err
		}
		return nil, &TransportError{URL: rawURL, ErrorClass: ErrorClassNetwork, Err: err}
	}
	return resp, nil
}

// attempt sends one request and reads the whole body.
func (c *Client) attempt(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{URL: rawURL, ErrorClass: ErrorClassNetwork, Err: err}
	}
	if c.tracker != nil {
		if err := c.tracker.Wait(ctx); err != nil {
			return nil, &TransportError{URL: rawURL, ErrorClass: ErrorClassNetwork, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, ErrorClass: ErrorClassClient, Err: fmt.Errorf("create request: %w", err)}
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Debug().
		Str("url", rawURL).
		Str("request_id", requestID).
		Msg("Executing catalogue request")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		aiodRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Debug().Err(err).Str("url", rawURL).Msg("HTTP request failed")
		return nil, &TransportError{URL: rawURL, ErrorClass: ErrorClassNetwork, Err: err}
	}
	defer httpResp.Body.Close()

	if c.tracker != nil {
		if err := c.tracker.UpdateFromHeaders(ctx, httpResp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		aiodRequestsTotal.WithLabelValues("read_error").Inc()
		return nil, &TransportError{URL: rawURL, ErrorClass: ErrorClassNetwork, Err: fmt.Errorf("read response body: %w", err)}
	}

	aiodRequestsTotal.WithLabelValues(strconv.Itoa(httpResp.StatusCode)).Inc()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		remoteErr := newRemoteError(rawURL, httpResp, body)
		c.logger.Debug().
			Str("url", rawURL).
			Int("status", httpResp.StatusCode).
			Str("error_class", string(remoteErr.ErrorClass)).
			Msg("Catalogue request error")
		return nil, remoteErr
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       body,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
