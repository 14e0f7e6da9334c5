package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/aiod-client/pkg/fetch"
	"github.com/Sternrassler/aiod-client/pkg/plan"
	"github.com/Sternrassler/aiod-client/pkg/resource"
)

// catalogue serves items 0..size-1 by offset/limit.
type catalogue struct {
	size      int
	withTotal bool
	failAt    map[int]bool

	mu       sync.Mutex
	offsets  []int
	inFlight int
	peak     int
}

func (c *catalogue) transport(_ context.Context, spec plan.RequestSpec) (fetch.Payload, error) {
	c.mu.Lock()
	c.offsets = append(c.offsets, spec.Offset)
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()
	time.Sleep(time.Millisecond)

	if c.failAt[spec.Offset] {
		return fetch.Payload{}, errors.New("server error")
	}

	items := []json.RawMessage{}
	for i := spec.Offset; i < spec.Offset+spec.Limit && i < c.size; i++ {
		items = append(items, json.RawMessage(strconv.Itoa(i)))
	}
	total := plan.TotalUnknown
	if c.withTotal {
		total = c.size
	}
	return fetch.Payload{Items: items, Total: total}, nil
}

func (c *catalogue) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.offsets)
}

func newListing(t *testing.T, opts plan.ListOptions) *plan.Listing {
	t.Helper()
	p, err := plan.NewPlanner("https://catalogue.example.org/api", resource.Default())
	if err != nil {
		t.Fatalf("NewPlanner() error = %v", err)
	}
	l, err := p.Listing("datasets", opts)
	if err != nil {
		t.Fatalf("Listing() error = %v", err)
	}
	return l
}

func newLister(t *testing.T, concurrency int) *Lister {
	t.Helper()
	e, err := fetch.NewExecutor(fetch.ExecutorConfig{Concurrency: concurrency})
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	return NewLister(e)
}

func itemValues(t *testing.T, result fetch.BatchResult) []int {
	t.Helper()
	var values []int
	for _, raw := range result.Items() {
		n, err := strconv.Atoi(string(raw))
		if err != nil {
			t.Fatalf("unexpected item %s", raw)
		}
		values = append(values, n)
	}
	return values
}

func TestFetchAll(t *testing.T) {
	tests := []struct {
		name        string
		size        int
		withTotal   bool
		pageSize    int
		limit       *int
		concurrency int
		wantItems   int
		wantCalls   int
	}{
		{name: "unknown total, ends on short page", size: 5, pageSize: 2, concurrency: 3, wantItems: 5, wantCalls: 3},
		{name: "known total stops planning", size: 6, withTotal: true, pageSize: 2, concurrency: 5, wantItems: 6, wantCalls: 3},
		{name: "limit shortens last page", size: 100, pageSize: 10, limit: plan.Limit(25), concurrency: 4, wantItems: 25, wantCalls: 3},
		{name: "single item limit", size: 100, pageSize: 1, limit: plan.Limit(1), concurrency: 4, wantItems: 1, wantCalls: 1},
		{name: "empty listing", size: 0, pageSize: 10, concurrency: 4, wantItems: 0, wantCalls: 1},
		{name: "exact multiple of page size", size: 4, pageSize: 2, concurrency: 1, wantItems: 4, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &catalogue{size: tt.size, withTotal: tt.withTotal}
			listing := newListing(t, plan.ListOptions{PageSize: tt.pageSize, Limit: tt.limit})

			result, err := newLister(t, tt.concurrency).FetchAll(context.Background(), listing, c.transport, nil)
			if err != nil {
				t.Fatalf("FetchAll() error = %v", err)
			}
			if len(result.Failures) != 0 {
				t.Fatalf("Unexpected failures: %+v", result.Failures)
			}

			values := itemValues(t, result)
			if len(values) != tt.wantItems {
				t.Errorf("Items = %d, want %d", len(values), tt.wantItems)
			}
			for i, v := range values {
				if v != i {
					t.Errorf("Item[%d] = %d, items out of order", i, v)
					break
				}
			}
			if c.calls() != tt.wantCalls {
				t.Errorf("Transport calls = %d (offsets %v), want %d", c.calls(), c.offsets, tt.wantCalls)
			}
			if result.ResourceType != "datasets" {
				t.Errorf("ResourceType = %q", result.ResourceType)
			}
		})
	}
}

func TestFetchAll_FirstPageFailureStops(t *testing.T) {
	c := &catalogue{size: 50, failAt: map[int]bool{0: true}}
	listing := newListing(t, plan.ListOptions{PageSize: 10})

	result, err := newLister(t, 4).FetchAll(context.Background(), listing, c.transport, nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if c.calls() != 1 {
		t.Errorf("Transport calls = %d, want 1", c.calls())
	}

	_, err = result.Unwrap()
	var agg *fetch.AggregatedFetchError
	if !errors.As(err, &agg) {
		t.Fatalf("Unwrap() error = %v, want AggregatedFetchError", err)
	}
	if refs := agg.Refs(); len(refs) != 1 || refs[0] != "offset=0" {
		t.Errorf("Refs() = %v, want [offset=0]", refs)
	}
}

func TestFetchAll_UnknownTotalFetchesPagesInSequence(t *testing.T) {
	c := &catalogue{size: 25}
	listing := newListing(t, plan.ListOptions{PageSize: 5})

	result, err := newLister(t, 4).FetchAll(context.Background(), listing, c.transport, nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if got := len(itemValues(t, result)); got != 25 {
		t.Errorf("Items = %d, want 25", got)
	}
	// Offsets 0..20 are full pages; the empty page at 25 ends the listing.
	if c.calls() != 6 {
		t.Errorf("Transport calls = %d (offsets %v), want 6", c.calls(), c.offsets)
	}
	if c.peak != 1 {
		t.Errorf("Peak in-flight = %d, want 1 while the total is unknown", c.peak)
	}
}

func TestFetchAll_KnownTotalFetchesInWaves(t *testing.T) {
	c := &catalogue{size: 40, withTotal: true}
	listing := newListing(t, plan.ListOptions{PageSize: 5})

	result, err := newLister(t, 4).FetchAll(context.Background(), listing, c.transport, nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if got := len(itemValues(t, result)); got != 40 {
		t.Errorf("Items = %d, want 40", got)
	}
	if c.calls() != 8 {
		t.Errorf("Transport calls = %d (offsets %v), want 8", c.calls(), c.offsets)
	}
	if c.peak > 4 {
		t.Errorf("Peak in-flight = %d, want <= 4", c.peak)
	}
}

func TestFetchAll_WaveFailureStopsPlanning(t *testing.T) {
	c := &catalogue{size: 100, withTotal: true, failAt: map[int]bool{4: true}}
	listing := newListing(t, plan.ListOptions{PageSize: 2})

	result, err := newLister(t, 2).FetchAll(context.Background(), listing, c.transport, nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	// Wave 1: offset 0. Wave 2: offsets 2 and 4; 4 fails.
	if c.calls() != 3 {
		t.Errorf("Transport calls = %d (offsets %v), want 3", c.calls(), c.offsets)
	}
	if len(result.Payloads) != 2 || len(result.Failures) != 1 {
		t.Errorf("Payloads = %d, Failures = %d; want 2 and 1", len(result.Payloads), len(result.Failures))
	}
}

func TestFetchAll_ProgressPerPage(t *testing.T) {
	c := &catalogue{size: 7}
	listing := newListing(t, plan.ListOptions{PageSize: 3})

	var completed []int
	onComplete := func(o fetch.Outcome) { completed = append(completed, o.Index) }

	result, err := newLister(t, 2).FetchAll(context.Background(), listing, c.transport, onComplete)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(completed) != result.Total() {
		t.Errorf("Completions = %d, pages = %d", len(completed), result.Total())
	}
}

func TestFetchAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := func(ctx context.Context, spec plan.RequestSpec) (fetch.Payload, error) {
		cancel()
		<-ctx.Done()
		return fetch.Payload{}, ctx.Err()
	}

	listing := newListing(t, plan.ListOptions{PageSize: 10})
	_, err := newLister(t, 2).FetchAll(ctx, listing, transport, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FetchAll() error = %v, want context.Canceled", err)
	}
}
