// Package pagination drives offset/limit listings of the catalogue.
//
// The total number of pages is not known up front. The Lister fetches the
// first page alone and inspects it. If the server reported a total
// (X-Total-Count), the following pages go out in waves of up to the
// executor's concurrency; otherwise each page is requested only after the
// previous one has shown that more data exists:
//
//	lister := pagination.NewLister(executor)
//	result, err := lister.FetchAll(ctx, listing, transport, onComplete)
//
// The listing ends when:
//   - the server-reported total (X-Total-Count) has been planned
//   - a page carries fewer items than requested
//   - the caller's limit has been reached
//   - a wave contains a failure (later pages are not requested)
//
// Page bodies are turned into items by a Decoder: either the resource's jq
// selector, or a bare array / an object with an "items" array.
package pagination
