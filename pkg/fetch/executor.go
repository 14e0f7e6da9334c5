package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/aiod-client/pkg/faults"
	"github.com/Sternrassler/aiod-client/pkg/plan"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// TransportFunc performs one planned request and decodes its payload.
// Any error it returns becomes a failure Outcome.
type TransportFunc func(ctx context.Context, spec plan.RequestSpec) (Payload, error)

// CompletionFunc observes every outcome as it completes.
type CompletionFunc func(Outcome)

// ExecutorConfig holds executor configuration.
type ExecutorConfig struct {
	// Concurrency is the maximum number of transport calls in flight.
	Concurrency int

	// Timeout per request; 0 leaves the deadline to the transport.
	Timeout time.Duration
}

// DefaultExecutorConfig returns the default executor configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Concurrency: 10,
		Timeout:     30 * time.Second,
	}
}

// Executor dispatches request specs with bounded concurrency.
type Executor struct {
	config ExecutorConfig
	logger zerolog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(config ExecutorConfig) (*Executor, error) {
	if config.Concurrency < 1 {
		return nil, faults.Configf("concurrency", "must be >= 1 (got %d)", config.Concurrency)
	}
	if config.Timeout < 0 {
		return nil, faults.Configf("timeout", "must be >= 0 (got %v)", config.Timeout)
	}
	return &Executor{
		config: config,
		logger: log.With().Str("component", "fetch-executor").Logger(),
	}, nil
}

// Concurrency returns the in-flight bound.
func (e *Executor) Concurrency() int {
	return e.config.Concurrency
}

// Run dispatches specs and returns a channel carrying one Outcome per
// dispatched spec, in completion order. onComplete (optional) is called for
// each outcome before it is sent, always from the same goroutine, never
// concurrently.
//
// The channel is closed once every dispatched request has finished. When ctx
// is cancelled, no further specs are dispatched, in-flight requests see the
// cancellation, and the channel closes with fewer outcomes than specs.
func (e *Executor) Run(ctx context.Context, specs []plan.RequestSpec, transport TransportFunc, onComplete CompletionFunc) <-chan Outcome {
	out := make(chan Outcome, len(specs))
	if len(specs) == 0 {
		close(out)
		return out
	}

	completed := make(chan Outcome, len(specs))
	sem := semaphore.NewWeighted(int64(e.config.Concurrency))

	// Dispatcher
	go func() {
		defer close(completed)

		var wg sync.WaitGroup
		dispatched := 0
		for _, spec := range specs {
			if err := sem.Acquire(ctx, 1); err != nil {
				e.logger.Debug().
					Int("dispatched", dispatched).
					Int("total", len(specs)).
					Msg("Dispatch stopped (context cancelled)")
				break
			}

			wg.Add(1)
			dispatched++
			InFlight.Inc()
			go func(spec plan.RequestSpec) {
				defer wg.Done()
				defer sem.Release(1)
				defer InFlight.Dec()
				completed <- e.execute(ctx, spec, transport)
			}(spec)
		}
		wg.Wait()
	}()

	// Emitter
	go func() {
		defer close(out)
		for outcome := range completed {
			OutcomesTotal.WithLabelValues(outcome.Spec.Kind.String(), outcome.Status.String()).Inc()
			if onComplete != nil {
				onComplete(outcome)
			}
			out <- outcome
		}
	}()

	return out
}

// execute runs a single request. A panicking transport is recorded as a failure.
func (e *Executor) execute(ctx context.Context, spec plan.RequestSpec, transport TransportFunc) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = failure(spec, fmt.Errorf("transport panic: %v", r))
		}
	}()

	reqCtx := ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	payload, err := transport(reqCtx, spec)
	if err != nil {
		e.logger.Debug().
			Err(err).
			Int("index", spec.Index).
			Str("ref", spec.Ref()).
			Msg("Request failed")
		return failure(spec, err)
	}
	return success(spec, payload)
}
