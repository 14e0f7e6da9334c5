package pagination

import (
	"context"
	"time"

	"github.com/Sternrassler/aiod-client/pkg/fetch"
	"github.com/Sternrassler/aiod-client/pkg/plan"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Lister fetches every page of a listing in waves.
type Lister struct {
	executor *fetch.Executor
	logger   zerolog.Logger
}

// NewLister creates a lister. Once the total is known the wave size is the
// executor's concurrency; until then pages are fetched one at a time.
func NewLister(executor *fetch.Executor) *Lister {
	return &Lister{
		executor: executor,
		logger:   log.With().Str("component", "pagination").Logger(),
	}
}

// FetchAll fetches the listing and returns its pages in offset order.
// Failed pages are reported in the result, not as an error; the returned
// error is reserved for cancellation and internal faults.
func (l *Lister) FetchAll(ctx context.Context, listing *plan.Listing, transport fetch.TransportFunc, onComplete fetch.CompletionFunc) (fetch.BatchResult, error) {
	start := time.Now()
	resourceType := listing.Descriptor().Type
	assembler := fetch.NewAssembler(0)

	waveSize := 1 // first page alone
	waves := 0
	for !listing.Done() {
		specs := listing.Next(waveSize)
		if len(specs) == 0 {
			break
		}
		waves++
		assembler.Grow(len(specs))

		failed := false
		observe := func(o fetch.Outcome) {
			if o.Status == fetch.StatusFailure {
				failed = true
				l.logger.Warn().
					Err(o.Err).
					Str("resource", resourceType).
					Int("offset", o.Spec.Offset).
					Msg("Page fetch failed")
				return
			}
			listing.Observe(o.Spec, len(o.Payload.Items), o.Payload.Total)
		}

		outcomes := l.executor.Run(ctx, specs, transport, onComplete)
		if err := assembler.Consume(ctx, outcomes, len(specs), observe); err != nil {
			return fetch.BatchResult{}, err
		}
		if err := ctx.Err(); err != nil {
			return fetch.BatchResult{}, err
		}

		if waves == 1 {
			cursor := listing.Cursor()
			ev := l.logger.Info().Str("resource", resourceType).Int("page_size", cursor.Limit)
			if cursor.TotalKnown() {
				ev = ev.Int("total_items", cursor.Total)
			}
			if pages, ok := listing.ExpectedPages(); ok {
				ev = ev.Int("expected_pages", pages)
			}
			ev.Msg("Starting paged fetch")
		}

		if failed {
			// Later offsets would be fetched in vain; the batch is reported as failed.
			listing.Stop()
			break
		}
		// Without a total only the previous page tells whether another exists.
		waveSize = 1
		if listing.Cursor().TotalKnown() {
			waveSize = l.executor.Concurrency()
		}
	}

	result, err := assembler.Result()
	if err != nil {
		return fetch.BatchResult{}, err
	}
	result.ResourceType = resourceType

	l.logger.Info().
		Str("resource", resourceType).
		Int("pages", result.Total()).
		Int("failed", len(result.Failures)).
		Int("waves", waves).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return result, nil
}
