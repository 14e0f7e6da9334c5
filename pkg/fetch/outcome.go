package fetch

import (
	"encoding/json"

	"github.com/Sternrassler/aiod-client/pkg/plan"
)

// Status is the resolution of one request.
type Status int

const (
	// StatusSuccess means the request produced a payload.
	StatusSuccess Status = iota

	// StatusFailure means the request produced an error.
	StatusFailure
)

// String implements fmt.Stringer.
func (s Status) String() string {
	if s == StatusFailure {
		return "failure"
	}
	return "success"
}

// Payload is the decoded result of one successful request.
type Payload struct {
	// Body is the raw JSON document. For a listing page it is the whole page
	// as received; it is nil when the page was cut to an overall limit, so
	// Body never carries items beyond Items.
	Body json.RawMessage

	// Items holds the items of a listing page; nil for item requests.
	Items []json.RawMessage

	// Total is the server-reported item total of a listing, or plan.TotalUnknown.
	Total int
}

// Outcome is the result of one request. Exactly one of Payload and Err is set.
type Outcome struct {
	Index   int
	Spec    plan.RequestSpec
	Status  Status
	Payload *Payload
	Err     error
}

func success(spec plan.RequestSpec, p Payload) Outcome {
	return Outcome{Index: spec.Index, Spec: spec, Status: StatusSuccess, Payload: &p}
}

func failure(spec plan.RequestSpec, err error) Outcome {
	return Outcome{Index: spec.Index, Spec: spec, Status: StatusFailure, Err: err}
}
