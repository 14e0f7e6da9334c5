package aiod

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Sternrassler/aiod-client/pkg/fetch"
	"github.com/Sternrassler/aiod-client/pkg/progress"
)

// FetchBatchByIDs fetches one item per identifier. The result holds the
// payloads in identifier order and every failed identifier; the error is
// reserved for configuration errors and cancellation.
func (c *Client) FetchBatchByIDs(ctx context.Context, resourceType string, ids []string, opts FetchOptions) (fetch.BatchResult, error) {
	specs, err := c.planner.PlanByIDs(resourceType, ids, formatOf(opts))
	if err != nil {
		return fetch.BatchResult{}, err
	}
	exec, err := c.executor(opts)
	if err != nil {
		return fetch.BatchResult{}, err
	}

	start := time.Now()
	defer func() {
		fetch.BatchDuration.WithLabelValues("ids").Observe(time.Since(start).Seconds())
	}()

	reporter := c.reporter(resourceType, opts)
	reporter.OnStart(len(specs))
	outcomes := exec.Run(ctx, specs, c.itemTransport, progress.Track(reporter))
	result, err := fetch.Assemble(ctx, outcomes, len(specs))
	reporter.OnFinish()
	if err != nil {
		return fetch.BatchResult{}, err
	}
	result.ResourceType = resourceType

	c.logger.Debug().
		Str("resource", resourceType).
		Int("requested", len(specs)).
		Int("failed", len(result.Failures)).
		Dur("duration", time.Since(start)).
		Msg("Fetch by identifiers complete")

	return result, nil
}

// FetchByIDs fetches one item per identifier, in identifier order. If any
// identifier fails, the error is an *fetch.AggregatedFetchError naming all
// of them.
func (c *Client) FetchByIDs(ctx context.Context, resourceType string, ids []string, opts FetchOptions) ([]json.RawMessage, error) {
	result, err := c.FetchBatchByIDs(ctx, resourceType, ids, opts)
	return unwrapItems(result, err)
}

// FetchByIDsAsync runs FetchByIDs in the background. The channel receives
// exactly one Result and is then closed.
func (c *Client) FetchByIDsAsync(ctx context.Context, resourceType string, ids []string, opts FetchOptions) <-chan Result {
	return async(func() ([]json.RawMessage, error) {
		return c.FetchByIDs(ctx, resourceType, ids, opts)
	})
}

// FetchByIDsSync runs FetchByIDs inside a private scope; see RunSync.
func (c *Client) FetchByIDsSync(ctx context.Context, resourceType string, ids []string, opts FetchOptions) ([]json.RawMessage, error) {
	result, err := RunSyncWithPolicy(ctx, c.config.Nesting, func(ctx context.Context) (fetch.BatchResult, error) {
		return c.FetchBatchByIDs(ctx, resourceType, ids, opts)
	})
	return unwrapItems(result, err)
}

func unwrapItems(result fetch.BatchResult, err error) ([]json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	if _, err := result.Unwrap(); err != nil {
		return nil, err
	}
	return result.Items(), nil
}

func async(fn func() ([]json.RawMessage, error)) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		items, err := fn()
		ch <- Result{Items: items, Err: err}
	}()
	return ch
}
