package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteBatch is returned when the outcome stream ends before every
// expected outcome arrived, or carries an index twice or out of range.
var ErrIncompleteBatch = errors.New("incomplete batch")

// ErrMalformedPayload marks a 2xx response whose body could not be decoded.
var ErrMalformedPayload = errors.New("malformed response body")

// Failure describes one failed request of a batch.
type Failure struct {
	Index int

	// Ref is the identifier (item requests) or "offset=N" (page requests).
	Ref string

	Err error
}

// AggregatedFetchError lists every failed request of a batch.
type AggregatedFetchError struct {
	ResourceType string
	Total        int
	Failures     []Failure
}

// Error implements the error interface.
func (e *AggregatedFetchError) Error() string {
	var b strings.Builder
	if e.ResourceType != "" {
		fmt.Fprintf(&b, "%s: ", e.ResourceType)
	}
	fmt.Fprintf(&b, "%d of %d requests failed", len(e.Failures), e.Total)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %s: %v", f.Ref, f.Err)
	}
	return b.String()
}

// Unwrap returns the individual causes for errors.Is/As.
func (e *AggregatedFetchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Refs returns the identifiers/offsets of the failed requests, in order.
func (e *AggregatedFetchError) Refs() []string {
	refs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		refs = append(refs, f.Ref)
	}
	return refs
}
