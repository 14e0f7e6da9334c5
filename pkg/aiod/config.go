package aiod

import (
	"net/http"
	"time"

	"github.com/Sternrassler/aiod-client/pkg/auth"
	"github.com/Sternrassler/aiod-client/pkg/ratelimit"
	"github.com/Sternrassler/aiod-client/pkg/resource"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "aiod-client-go/1.0"

// Config holds the client configuration.
type Config struct {
	// ServerURL is the catalogue API base URL, e.g. "https://api.aiod.eu".
	ServerURL string

	UserAgent string

	// Concurrency is the default number of requests in flight per call.
	Concurrency int

	// Timeout per request, retries included.
	Timeout time.Duration

	// Client-side rate limit in requests per second (0 disables).
	RateLimit float64
	Burst     int

	// MaxRetries overrides the per-error-class retry attempts (0 keeps them).
	MaxRetries int

	// Nesting decides whether Sync calls may run inside another Sync call.
	Nesting NestingPolicy
}

// DefaultConfig returns the default configuration for serverURL.
func DefaultConfig(serverURL string) Config {
	return Config{
		ServerURL:   serverURL,
		UserAgent:   DefaultUserAgent,
		Concurrency: 10,
		Timeout:     30 * time.Second,
		RateLimit:   20,
		Burst:       10,
		Nesting:     ForbidNesting,
	}
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	registry   *resource.Registry
	headers    auth.HeaderSource
	tracker    *ratelimit.Tracker
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRegistry replaces the resource registry (default: resource.Default()).
func WithRegistry(r *resource.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithAuth sets the source of authentication headers (default: auth.None).
func WithAuth(h auth.HeaderSource) Option {
	return func(o *options) { o.headers = h }
}

// WithRateTracker makes the client honour server quota headers.
func WithRateTracker(t *ratelimit.Tracker) Option {
	return func(o *options) { o.tracker = t }
}
