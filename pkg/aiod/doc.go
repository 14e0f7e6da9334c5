// Package aiod is the caller-facing API of the AI-on-Demand catalogue client.
//
// Items are fetched either by identifier or by walking a listing page by
// page. Both modes run with a bounded number of requests in flight and return
// results in input (or offset) order, whatever order the server answers in:
//
//	c, err := aiod.New(aiod.DefaultConfig("https://api.aiod.eu"))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	docs, err := c.FetchByIDs(ctx, "datasets", []string{"1", "2", "3"}, aiod.FetchOptions{})
//
// A failed request does not abort the others. The convenience calls
// (FetchByIDs, FetchByListing) return an *fetch.AggregatedFetchError naming
// every failed identifier or page offset; the Batch variants return the raw
// fetch.BatchResult and never fail for partial failure.
//
// The Sync variants run the same pipeline inside a private scope created and
// torn down per call; see RunSync.
package aiod
