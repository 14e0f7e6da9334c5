package aiod

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Sternrassler/aiod-client/pkg/faults"
	"github.com/Sternrassler/aiod-client/pkg/fetch"
	"github.com/Sternrassler/aiod-client/pkg/pagination"
	"github.com/Sternrassler/aiod-client/pkg/plan"
	"github.com/Sternrassler/aiod-client/pkg/progress"
)

// FetchBatchByListing walks the listing of resourceType. The result holds one
// payload per page in offset order (BatchResult.Items flattens them) and every
// failed page; the error is reserved for configuration errors and
// cancellation.
func (c *Client) FetchBatchByListing(ctx context.Context, resourceType string, opts ListOptions) (fetch.BatchResult, error) {
	listing, err := c.planner.Listing(resourceType, plan.ListOptions{
		PageSize: opts.PageSize,
		Limit:    opts.Limit,
		Format:   formatOf(opts.FetchOptions),
	})
	if err != nil {
		return fetch.BatchResult{}, err
	}

	decoder, err := pagination.NewDecoder(listing.Descriptor().ItemsSelector)
	if err != nil {
		return fetch.BatchResult{}, faults.Config("items_selector", err)
	}
	exec, err := c.executor(opts.FetchOptions)
	if err != nil {
		return fetch.BatchResult{}, err
	}

	start := time.Now()
	defer func() {
		fetch.BatchDuration.WithLabelValues("listing").Observe(time.Since(start).Seconds())
	}()

	transport := func(ctx context.Context, spec plan.RequestSpec) (fetch.Payload, error) {
		resp, err := c.get(ctx, spec)
		if err != nil {
			return fetch.Payload{}, err
		}
		return decoder.Decode(resp.Body, resp.Header)
	}

	reporter := c.reporter(resourceType, opts.FetchOptions)
	reporter.OnStart(progress.TotalUnknown)
	result, err := pagination.NewLister(exec).FetchAll(ctx, listing, transport, progress.Track(reporter))
	reporter.OnFinish()
	if err != nil {
		return fetch.BatchResult{}, err
	}

	if opts.Limit != nil {
		result = truncate(result, *opts.Limit)
	}
	return result, nil
}

// truncate drops items beyond limit. Servers may ignore a shortened last
// page limit. A cut page loses its raw Body.
func truncate(result fetch.BatchResult, limit int) fetch.BatchResult {
	remaining := limit
	for i, p := range result.Payloads {
		if len(p.Items) > remaining {
			result.Payloads[i].Items = p.Items[:remaining]
			result.Payloads[i].Body = nil
		}
		remaining -= len(result.Payloads[i].Items)
	}
	return result
}

// FetchByListing returns the items of resourceType in listing order, up to
// opts.Limit or the end of data. If any page fails, the error is an
// *fetch.AggregatedFetchError naming the failed offsets.
func (c *Client) FetchByListing(ctx context.Context, resourceType string, opts ListOptions) ([]json.RawMessage, error) {
	result, err := c.FetchBatchByListing(ctx, resourceType, opts)
	return unwrapItems(result, err)
}

// FetchByListingAsync runs FetchByListing in the background. The channel
// receives exactly one Result and is then closed.
func (c *Client) FetchByListingAsync(ctx context.Context, resourceType string, opts ListOptions) <-chan Result {
	return async(func() ([]json.RawMessage, error) {
		return c.FetchByListing(ctx, resourceType, opts)
	})
}

// FetchByListingSync runs FetchByListing inside a private scope; see RunSync.
func (c *Client) FetchByListingSync(ctx context.Context, resourceType string, opts ListOptions) ([]json.RawMessage, error) {
	result, err := RunSyncWithPolicy(ctx, c.config.Nesting, func(ctx context.Context) (fetch.BatchResult, error) {
		return c.FetchBatchByListing(ctx, resourceType, opts)
	})
	return unwrapItems(result, err)
}
