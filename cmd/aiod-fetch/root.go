package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Sternrassler/aiod-client/pkg/aiod"
	"github.com/Sternrassler/aiod-client/pkg/auth"
	"github.com/Sternrassler/aiod-client/pkg/logging"
	"github.com/Sternrassler/aiod-client/pkg/metrics"
	"github.com/Sternrassler/aiod-client/pkg/progress"
	"github.com/Sternrassler/aiod-client/pkg/ratelimit"
	"github.com/Sternrassler/aiod-client/pkg/resource"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultServerURL = "https://api.aiod.eu"

type rootOptions struct {
	serverURL   string
	token       string
	redisURL    string
	logLevel    string
	metricsAddr string

	tokenURL     string
	clientID     string
	clientSecret string

	format      string
	concurrency int
	timeout     time.Duration
	progress    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "aiod-fetch",
		Short: "Fetch items from the AI-on-Demand catalogue",
		Long: `aiod-fetch retrieves catalogue items by identifier or by walking a
resource listing, with a bounded number of requests in flight. Results are
printed as a JSON array in input (or listing) order.

Environment:
  AIOD_SERVER_URL   catalogue API base URL (default ` + defaultServerURL + `)
  AIOD_TOKEN        static bearer token
  AIOD_TOKEN_URL    OAuth2 token endpoint for client credentials
  AIOD_CLIENT_ID    OAuth2 client ID
  AIOD_CLIENT_SECRET OAuth2 client secret
  REDIS_URL         redis URL for the shared token store and rate limit state
  LOG_LEVEL         debug, info, warn, error or off

Examples:
  # Fetch three datasets by identifier
  aiod-fetch get datasets 1 2 3

  # List the first 250 publications, 50 per page
  aiod-fetch list publications --page-size 50 --limit 250

  # Number of organisations
  aiod-fetch count organisations
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			cfg := logging.DefaultConfig()
			cfg.Level = level
			cfg.Output = cmd.ErrOrStderr()
			logging.Setup(cfg)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.serverURL, "server", getEnv("AIOD_SERVER_URL", defaultServerURL), "catalogue API base URL")
	flags.StringVar(&opts.token, "token", getEnv("AIOD_TOKEN", ""), "bearer token")
	flags.StringVar(&opts.redisURL, "redis", getEnv("REDIS_URL", ""), "redis URL for shared token and rate limit state")
	flags.StringVar(&opts.logLevel, "log-level", getEnv("LOG_LEVEL", "warn"), "log level")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.StringVar(&opts.tokenURL, "token-url", getEnv("AIOD_TOKEN_URL", ""), "OAuth2 token endpoint (client credentials)")
	flags.StringVar(&opts.clientID, "client-id", getEnv("AIOD_CLIENT_ID", ""), "OAuth2 client ID")
	flags.StringVar(&opts.clientSecret, "client-secret", getEnv("AIOD_CLIENT_SECRET", ""), "OAuth2 client secret")
	flags.StringVar(&opts.format, "format", string(resource.FormatJSON), "response format (json, jsonld)")
	flags.IntVar(&opts.concurrency, "concurrency", 10, "maximum requests in flight")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")
	flags.BoolVar(&opts.progress, "progress", false, "draw a progress bar on stderr")

	cmd.AddCommand(
		newGetCmd(opts),
		newListCmd(opts),
		newCountCmd(opts),
		newResourcesCmd(opts),
		newLogoutCmd(opts),
	)
	return cmd
}

// session holds what one command invocation needs.
type session struct {
	client *aiod.Client
	store  *auth.TokenStore
	close  func()
}

func (o *rootOptions) connect(ctx context.Context) (*session, error) {
	s := &session{}
	var closers []func()
	s.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var rateStore ratelimit.Store = ratelimit.NewMemoryStore()
	if o.redisURL != "" {
		redisOpts, err := redis.ParseURL(o.redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		closers = append(closers, func() { rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			s.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		rateStore = ratelimit.NewRedisStore(rdb)
		s.store = auth.NewTokenStore(rdb)
	}

	if o.metricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		closers = append(closers, cancel)
		go func() {
			if err := metrics.Serve(metricsCtx, o.metricsAddr); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
	}

	cfg := aiod.DefaultConfig(o.serverURL)
	cfg.Concurrency = o.concurrency
	cfg.Timeout = o.timeout

	tracker := ratelimit.NewTracker(rateStore, logging.NewLogger("ratelimit"))
	client, err := aiod.New(cfg, aiod.WithAuth(o.headerSource(ctx, s.store)), aiod.WithRateTracker(tracker))
	if err != nil {
		s.close()
		return nil, err
	}
	closers = append(closers, func() { client.Close() })
	s.client = client
	return s, nil
}

// headerSource picks static token, client credentials (optionally shared
// through redis) or anonymous access, in that order.
func (o *rootOptions) headerSource(ctx context.Context, store *auth.TokenStore) auth.HeaderSource {
	if o.token != "" {
		return auth.Static(o.token)
	}
	if o.tokenURL != "" && o.clientID != "" {
		cc := clientcredentials.Config{
			ClientID:     o.clientID,
			ClientSecret: o.clientSecret,
			TokenURL:     o.tokenURL,
		}
		src := cc.TokenSource(ctx)
		if store != nil {
			src = auth.Cached(store, o.clientID, src)
		}
		return auth.Bearer(src)
	}
	return auth.None
}

func (o *rootOptions) fetchOptions(cmd *cobra.Command, resourceType string) aiod.FetchOptions {
	fo := aiod.FetchOptions{Format: resource.Format(o.format)}
	if o.progress {
		bar := progress.NewBar(cmd.ErrOrStderr(), resourceType)
		if !logging.IsTerminal(cmd.ErrOrStderr()) {
			bar.WithoutColor()
		}
		fo.Progress = bar
	}
	return fo
}
