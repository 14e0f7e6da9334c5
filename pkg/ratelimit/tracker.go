package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	aiodQuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aiod_rate_limit_remaining",
		Help: "Requests remaining in the current server rate limit window",
	})

	aiodRateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aiod_rate_limit_waits_total",
		Help: "Total number of requests held until the rate limit window reset",
	})

	aiodRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aiod_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low rate limit quota",
	})
)

const (
	// DefaultThrottleDelay is the pause applied when the quota is low.
	DefaultThrottleDelay = 500 * time.Millisecond

	// DefaultMaxWait caps how long a request is held for a window reset.
	DefaultMaxWait = time.Minute

	// maxStateAge bounds how long an observed state is trusted.
	maxStateAge = 5 * time.Minute
)

// Tracker observes quota headers and gates requests.
type Tracker struct {
	store         Store
	logger        zerolog.Logger
	throttleDelay time.Duration
	maxWait       time.Duration
}

// NewTracker creates a tracker backed by store.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:         store,
		logger:        logger,
		throttleDelay: DefaultThrottleDelay,
		maxWait:       DefaultMaxWait,
	}
}

// SetThrottleDelay overrides the low-quota pause (for testing).
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

// State returns the current state, or nil when nothing fresh is known.
func (t *Tracker) State(ctx context.Context) (*State, error) {
	state, err := t.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoState) {
			return nil, nil
		}
		return nil, fmt.Errorf("load rate limit state: %w", err)
	}
	if state.IsStale(maxStateAge) {
		return nil, nil
	}
	return state, nil
}

// UpdateFromHeaders records the quota reported by a response.
// Responses without quota headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := firstHeader(headers, "RateLimit-Remaining", "X-RateLimit-Remaining")
	if remainStr == "" {
		return nil
	}
	remain, err := strconv.Atoi(strings.TrimSpace(remainStr))
	if err != nil {
		return fmt.Errorf("parse RateLimit-Remaining header: %w", err)
	}

	now := time.Now()
	state := &State{
		Remaining:  remain,
		ObservedAt: now,
	}

	if limitStr := firstHeader(headers, "RateLimit-Limit", "X-RateLimit-Limit"); limitStr != "" {
		if limit, err := strconv.Atoi(strings.TrimSpace(limitStr)); err == nil {
			state.Limit = limit
		}
	}

	if resetStr := firstHeader(headers, "RateLimit-Reset", "X-RateLimit-Reset"); resetStr != "" {
		resetSeconds, err := strconv.Atoi(strings.TrimSpace(resetStr))
		if err != nil {
			return fmt.Errorf("parse RateLimit-Reset header: %w", err)
		}
		state.ResetAt = now.Add(time.Duration(resetSeconds) * time.Second)
	}

	if err := t.store.Save(ctx, state); err != nil {
		return fmt.Errorf("store rate limit state: %w", err)
	}

	aiodQuotaRemaining.Set(float64(remain))

	switch {
	case state.Exhausted():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit quota exhausted - requests will wait for reset")
	case state.Low():
		t.logger.Info().
			Int("remaining", remain).
			Msg("Rate limit quota low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Msg("Rate limit state updated")
	}

	return nil
}

// Wait blocks until a request may be sent. It holds requests until the window
// resets when the quota is exhausted and pauses briefly when it is low.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.State(ctx)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	var delay time.Duration
	switch {
	case state.Exhausted():
		delay = state.TimeUntilReset()
		if delay > t.maxWait {
			delay = t.maxWait
		}
		aiodRateLimitWaitsTotal.Inc()
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("wait_duration", delay).
			Msg("Rate limit exhausted - holding request")
	case state.Low():
		delay = t.throttleDelay
		aiodRateLimitThrottlesTotal.Inc()
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Msg("Rate limit low - throttling request")
	default:
		return nil
	}

	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func firstHeader(headers http.Header, names ...string) string {
	for _, name := range names {
		if v := headers.Get(name); v != "" {
			return v
		}
	}
	return ""
}
