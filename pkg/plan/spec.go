package plan

import (
	"net/http"
	"strconv"

	"github.com/Sternrassler/aiod-client/pkg/resource"
)

// Kind distinguishes item requests from listing page requests.
type Kind int

const (
	// KindItem fetches a single item by identifier.
	KindItem Kind = iota

	// KindPage fetches one offset/limit page of a listing.
	KindPage
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == KindPage {
		return "page"
	}
	return "item"
}

// RequestSpec describes one network call to make.
type RequestSpec struct {
	// Index is the position of this request's result in the final output.
	Index int

	Kind   Kind
	Method string
	URL    string
	Format resource.Format

	// Header holds format-related headers (Accept) for the request.
	Header http.Header

	// Identifier is set for KindItem requests.
	Identifier string

	// Offset and Limit are set for KindPage requests.
	Offset int
	Limit  int
}

// Ref identifies the request in diagnostics: the identifier for item
// requests, "offset=N" for page requests.
func (s RequestSpec) Ref() string {
	if s.Kind == KindPage {
		return "offset=" + strconv.Itoa(s.Offset)
	}
	return s.Identifier
}

// TotalUnknown marks a PageCursor whose total item count is not known yet.
const TotalUnknown = -1

// PageCursor tracks listing progress.
type PageCursor struct {
	// Offset of the next page to plan.
	Offset int

	// Limit is the page size.
	Limit int

	// Total item count, or TotalUnknown.
	Total int
}

// TotalKnown reports whether the server has revealed the total.
func (c PageCursor) TotalKnown() bool {
	return c.Total != TotalUnknown
}

// Exhausted reports whether the known total has been fully planned.
func (c PageCursor) Exhausted() bool {
	return c.TotalKnown() && c.Offset >= c.Total
}
