package aiod

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Sternrassler/aiod-client/pkg/auth"
	"github.com/Sternrassler/aiod-client/pkg/client"
	"github.com/Sternrassler/aiod-client/pkg/faults"
	"github.com/Sternrassler/aiod-client/pkg/fetch"
	"github.com/Sternrassler/aiod-client/pkg/plan"
	"github.com/Sternrassler/aiod-client/pkg/progress"
	"github.com/Sternrassler/aiod-client/pkg/resource"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FetchOptions configures one fetch call.
type FetchOptions struct {
	// Format defaults to resource.FormatJSON.
	Format resource.Format

	// Concurrency overrides Config.Concurrency for this call (0 keeps it).
	Concurrency int

	// ShowProgress draws a progress bar on stderr when Progress is nil.
	ShowProgress bool

	// Progress receives per-request completions.
	Progress progress.Reporter
}

// DefaultPageSize is the page size of DefaultListOptions.
const DefaultPageSize = 100

// ListOptions configures a listing call.
type ListOptions struct {
	FetchOptions

	// PageSize is the number of items per request. Must be > 0.
	PageSize int

	// Limit caps the number of items; nil fetches until end of data.
	Limit *int
}

// DefaultListOptions returns list options with DefaultPageSize and no limit.
func DefaultListOptions() ListOptions {
	return ListOptions{PageSize: DefaultPageSize}
}

// Result is delivered by the Async calls.
type Result struct {
	Items []json.RawMessage
	Err   error
}

// Client fetches catalogue items.
type Client struct {
	config   Config
	http     *client.Client
	planner  *plan.Planner
	registry *resource.Registry
	headers  auth.HeaderSource
	logger   zerolog.Logger
}

// New creates a catalogue client.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := options{registry: resource.Default(), headers: auth.None}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Concurrency < 1 {
		return nil, faults.Configf("concurrency", "must be >= 1 (got %d)", cfg.Concurrency)
	}

	planner, err := plan.NewPlanner(cfg.ServerURL, o.registry)
	if err != nil {
		return nil, err
	}

	httpCfg := client.DefaultConfig(cfg.UserAgent)
	httpCfg.Timeout = cfg.Timeout
	httpCfg.RateLimit = cfg.RateLimit
	httpCfg.Burst = cfg.Burst
	httpCfg.MaxRetries = cfg.MaxRetries
	httpCfg.RateTracker = o.tracker
	httpClient, err := client.New(httpCfg)
	if err != nil {
		return nil, faults.Config("http", err)
	}
	if o.httpClient != nil {
		httpClient.SetHTTPClient(o.httpClient)
	}

	return &Client{
		config:   cfg,
		http:     httpClient,
		planner:  planner,
		registry: o.registry,
		headers:  o.headers,
		logger:   log.With().Str("component", "aiod").Logger(),
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// executor builds the executor for one call.
func (c *Client) executor(opts FetchOptions) (*fetch.Executor, error) {
	concurrency := c.config.Concurrency
	if opts.Concurrency < 0 {
		return nil, faults.Configf("concurrency", "must be >= 1 (got %d)", opts.Concurrency)
	}
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}
	return fetch.NewExecutor(fetch.ExecutorConfig{
		Concurrency: concurrency,
		Timeout:     c.config.Timeout,
	})
}

func (c *Client) reporter(resourceType string, opts FetchOptions) progress.Reporter {
	if opts.Progress != nil {
		return opts.Progress
	}
	if opts.ShowProgress {
		return progress.NewBar(os.Stderr, resourceType)
	}
	return progress.Nop{}
}

func formatOf(opts FetchOptions) resource.Format {
	if opts.Format == "" {
		return resource.FormatJSON
	}
	return opts.Format
}

// get performs the request described by spec with authentication headers.
func (c *Client) get(ctx context.Context, spec plan.RequestSpec) (*client.Response, error) {
	header := spec.Header.Clone()
	authHeader, err := c.headers.Headers(ctx)
	if err != nil {
		return nil, &client.TransportError{URL: spec.URL, ErrorClass: client.ErrorClassClient, Err: fmt.Errorf("auth headers: %w", err)}
	}
	for key, values := range authHeader {
		header[key] = values
	}
	return c.http.Fetch(ctx, spec.URL, header, c.config.Timeout)
}

// itemTransport fetches one item document.
func (c *Client) itemTransport(ctx context.Context, spec plan.RequestSpec) (fetch.Payload, error) {
	resp, err := c.get(ctx, spec)
	if err != nil {
		return fetch.Payload{}, err
	}
	if !json.Valid(resp.Body) {
		return fetch.Payload{}, &client.TransportError{URL: spec.URL, ErrorClass: client.ErrorClassClient, Err: fetch.ErrMalformedPayload}
	}
	return fetch.Payload{Body: json.RawMessage(resp.Body), Total: plan.TotalUnknown}, nil
}
