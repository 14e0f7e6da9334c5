package fetch

import (
	"context"
	"encoding/json"
	"fmt"
)

// BatchResult is the ordered result of a batch.
// len(Payloads)+len(Failures) equals the number of requests, and together
// they cover every request index exactly once.
type BatchResult struct {
	// Payloads of successful requests, ascending by request index.
	Payloads []Payload

	// Failures, ascending by request index.
	Failures []Failure

	// ResourceType is carried into the aggregated error message.
	ResourceType string
}

// Total returns the number of requests in the batch.
func (r BatchResult) Total() int {
	return len(r.Payloads) + len(r.Failures)
}

// Unwrap returns the payloads, or an *AggregatedFetchError naming every
// failed request when there is at least one failure.
func (r BatchResult) Unwrap() ([]Payload, error) {
	if len(r.Failures) > 0 {
		return nil, &AggregatedFetchError{
			ResourceType: r.ResourceType,
			Total:        r.Total(),
			Failures:     r.Failures,
		}
	}
	return r.Payloads, nil
}

// Items flattens the payloads into documents: the body of item requests and
// the items of listing pages, in order.
func (r BatchResult) Items() []json.RawMessage {
	items := make([]json.RawMessage, 0, len(r.Payloads))
	for _, p := range r.Payloads {
		if p.Items != nil {
			items = append(items, p.Items...)
			continue
		}
		items = append(items, p.Body)
	}
	return items
}

// Assembler buffers outcomes until a batch is complete.
// An Assembler is owned by a single goroutine.
type Assembler struct {
	slots    []*Outcome
	received int
}

// NewAssembler creates an assembler expecting n outcomes.
func NewAssembler(expected int) *Assembler {
	return &Assembler{slots: make([]*Outcome, expected)}
}

// Grow raises the number of expected outcomes by n (listing waves).
func (a *Assembler) Grow(n int) {
	a.slots = append(a.slots, make([]*Outcome, n)...)
}

// Expected returns the number of outcomes the batch needs.
func (a *Assembler) Expected() int {
	return len(a.slots)
}

// Complete reports whether every expected outcome has arrived.
func (a *Assembler) Complete() bool {
	return a.received == len(a.slots)
}

// Add records one outcome.
func (a *Assembler) Add(o Outcome) error {
	if o.Index < 0 || o.Index >= len(a.slots) {
		return fmt.Errorf("%w: index %d out of range [0,%d)", ErrIncompleteBatch, o.Index, len(a.slots))
	}
	if a.slots[o.Index] != nil {
		return fmt.Errorf("%w: duplicate outcome for index %d", ErrIncompleteBatch, o.Index)
	}
	a.slots[o.Index] = &o
	a.received++
	return nil
}

// Consume reads n outcomes from the stream, passing each to observe (optional).
// On cancellation it waits for the stream to close, so that no request is
// still in flight when the error is returned.
func (a *Assembler) Consume(ctx context.Context, outcomes <-chan Outcome, n int, observe func(Outcome)) error {
	for seen := 0; seen < n; seen++ {
		select {
		case <-ctx.Done():
			drain(outcomes)
			return ctx.Err()
		case o, ok := <-outcomes:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return fmt.Errorf("%w: received %d of %d outcomes", ErrIncompleteBatch, seen, n)
			}
			if err := a.Add(o); err != nil {
				drain(outcomes)
				return err
			}
			if observe != nil {
				observe(o)
			}
		}
	}
	return nil
}

// Result returns the ordered batch result.
func (a *Assembler) Result() (BatchResult, error) {
	if !a.Complete() {
		return BatchResult{}, fmt.Errorf("%w: received %d of %d outcomes", ErrIncompleteBatch, a.received, len(a.slots))
	}

	var result BatchResult
	for _, o := range a.slots {
		if o.Status == StatusSuccess {
			result.Payloads = append(result.Payloads, *o.Payload)
			continue
		}
		result.Failures = append(result.Failures, Failure{
			Index: o.Index,
			Ref:   o.Spec.Ref(),
			Err:   o.Err,
		})
	}
	return result, nil
}

// Assemble collects expected outcomes and returns them in request order.
// Partial failure is not an error; see BatchResult.Unwrap.
func Assemble(ctx context.Context, outcomes <-chan Outcome, expected int) (BatchResult, error) {
	a := NewAssembler(expected)
	if err := a.Consume(ctx, outcomes, expected, nil); err != nil {
		return BatchResult{}, err
	}
	return a.Result()
}

func drain(outcomes <-chan Outcome) {
	for range outcomes {
	}
}
