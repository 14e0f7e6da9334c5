package plan

import (
	"net/http"

	"github.com/Sternrassler/aiod-client/pkg/faults"
	"github.com/Sternrassler/aiod-client/pkg/resource"
)

// ListOptions configures a listing plan.
type ListOptions struct {
	// PageSize is the number of items requested per page. Must be > 0.
	PageSize int

	// Limit is an optional ceiling on the total number of items.
	// nil means "until end of data"; an explicit value must be > 0.
	Limit *int

	// Format defaults to resource.FormatJSON.
	Format resource.Format
}

// Limit returns a pointer to n, for ListOptions.Limit.
func Limit(n int) *int {
	return &n
}

// Listing is a lazily grown page plan.
// A Listing is used by one goroutine at a time.
type Listing struct {
	planner    *Planner
	descriptor resource.Descriptor
	format     resource.Format
	limit      int
	bounded    bool

	cursor    PageCursor
	nextIndex int
	ended     bool
}

// Listing validates the options and creates a page plan for resourceType.
func (p *Planner) Listing(resourceType string, opts ListOptions) (*Listing, error) {
	if opts.Format == "" {
		opts.Format = resource.FormatJSON
	}
	d, err := p.Descriptor(resourceType, opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 {
		return nil, faults.Configf("page_size", "must be > 0 (got %d)", opts.PageSize)
	}

	l := &Listing{
		planner:    p,
		descriptor: d,
		format:     opts.Format,
		cursor: PageCursor{
			Offset: 0,
			Limit:  opts.PageSize,
			Total:  TotalUnknown,
		},
	}
	if opts.Limit != nil {
		if *opts.Limit <= 0 {
			return nil, faults.Configf("limit", "must be > 0 when set (got %d)", *opts.Limit)
		}
		l.limit = *opts.Limit
		l.bounded = true
	}
	return l, nil
}

// Descriptor returns the resource descriptor of the listing.
func (l *Listing) Descriptor() resource.Descriptor {
	return l.descriptor
}

// Cursor returns the current cursor.
func (l *Listing) Cursor() PageCursor {
	return l.cursor
}

// Planned returns the number of page specs handed out so far.
func (l *Listing) Planned() int {
	return l.nextIndex
}

// Done reports whether no further pages need to be planned.
func (l *Listing) Done() bool {
	if l.ended || l.cursor.Exhausted() {
		return true
	}
	return l.bounded && l.cursor.Offset >= l.limit
}

// Next plans up to n further pages. Indices continue from the previous call.
func (l *Listing) Next(n int) []RequestSpec {
	var specs []RequestSpec
	for len(specs) < n && !l.Done() {
		offset := l.cursor.Offset
		size := l.cursor.Limit
		if l.bounded && offset+size > l.limit {
			size = l.limit - offset
		}

		specs = append(specs, RequestSpec{
			Index:  l.nextIndex,
			Kind:   KindPage,
			Method: http.MethodGet,
			URL:    l.planner.withFormat(l.descriptor, l.planner.pageURL(l.descriptor, offset, size), l.format),
			Format: l.format,
			Header: formatHeader(l.descriptor, l.format),
			Offset: offset,
			Limit:  size,
		})
		l.nextIndex++
		l.cursor.Offset += size
	}
	return specs
}

// Observe records a page response. itemCount is the number of items the page
// carried; total is the server-reported total item count or TotalUnknown.
// A page shorter than requested marks the end of data.
func (l *Listing) Observe(page RequestSpec, itemCount, total int) {
	if total != TotalUnknown && total >= 0 {
		l.cursor.Total = total
	}
	if itemCount < page.Limit {
		l.ended = true
	}
}

// Stop ends planning regardless of observed pages.
func (l *Listing) Stop() {
	l.ended = true
}

// ExpectedPages returns the total number of pages the listing will plan, if
// that is already determined by a known total or the overall limit.
func (l *Listing) ExpectedPages() (int, bool) {
	ceiling := -1
	if l.cursor.TotalKnown() {
		ceiling = l.cursor.Total
	}
	if l.bounded && (ceiling < 0 || l.limit < ceiling) {
		ceiling = l.limit
	}
	if ceiling < 0 {
		return 0, false
	}
	if l.ended {
		return l.nextIndex, true
	}
	pages := (ceiling + l.cursor.Limit - 1) / l.cursor.Limit
	if pages < l.nextIndex {
		pages = l.nextIndex
	}
	return pages, true
}
