// Package metrics exposes the client's Prometheus metrics.
// The metrics themselves are defined next to the code that records them
// (client, fetch, ratelimit, auth) and registered via promauto.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the Prometheus registerer all client metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Handler serves the metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - aiod_requests_total{status} (Counter): Requests by HTTP status or transport failure
//   - aiod_request_duration_seconds (Histogram): Request duration, retries included
//   - aiod_errors_total{class} (Counter): Failed requests by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - aiod_retries_total{error_class} (Counter): Retry attempts by error class
//   - aiod_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - aiod_retry_exhausted_total{error_class} (Counter): Requests that exhausted their retries
//
// Fetch Metrics (pkg/fetch):
//   - aiod_fetch_outcomes_total{kind, status} (Counter): Outcomes by request kind (item, page)
//   - aiod_fetch_in_flight (Gauge): Requests currently dispatched
//   - aiod_fetch_batch_duration_seconds{mode} (Histogram): Batch duration (ids, listing)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - aiod_rate_limit_remaining (Gauge): Server-reported remaining quota
//   - aiod_rate_limit_waits_total (Counter): Requests held until the quota reset
//   - aiod_rate_limit_throttles_total (Counter): Requests delayed on a low quota
//
// Token Store Metrics (pkg/auth):
//   - aiod_token_store_lookups_total{result} (Counter): Token lookups (hit, miss)
//   - aiod_token_store_errors_total{operation} (Counter): Redis errors
//
// Example Prometheus Queries:
//
//   # Failed outcome ratio
//   sum(rate(aiod_fetch_outcomes_total{status="failure"}[5m])) /
//   sum(rate(aiod_fetch_outcomes_total[5m]))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(aiod_request_duration_seconds_bucket[5m]))
