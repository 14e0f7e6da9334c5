// Package progress reports per-request completion of a fetch batch.
//
// Reporters are driven from the executor's emitter goroutine: calls to one
// Reporter never overlap, so implementations need no locking. A reporter only
// observes; it never changes outcomes.
package progress

import (
	"github.com/Sternrassler/aiod-client/pkg/fetch"
)

// TotalUnknown is passed to OnStart when the number of requests is not known
// up front (listing mode).
const TotalUnknown = -1

// Reporter observes the progress of one batch.
type Reporter interface {
	// OnStart is called once before any request completes.
	OnStart(total int)

	// OnItemComplete is called once per completed request.
	OnItemComplete(index int, status fetch.Status)

	// OnFinish is called once after the last completion.
	OnFinish()
}

// TotalUpdater is implemented by reporters that want to learn the total item
// count of a listing once the server reveals it.
type TotalUpdater interface {
	OnTotal(total int)
}

// Nop discards all progress.
type Nop struct{}

// OnStart does nothing.
func (Nop) OnStart(int) {}

// OnItemComplete does nothing.
func (Nop) OnItemComplete(int, fetch.Status) {}

// OnFinish does nothing.
func (Nop) OnFinish() {}

// Track adapts r to an executor completion callback. The first payload that
// carries a known total is forwarded to r's OnTotal, if r implements
// TotalUpdater.
func Track(r Reporter) fetch.CompletionFunc {
	if r == nil {
		r = Nop{}
	}
	updater, _ := r.(TotalUpdater)
	told := false
	return func(o fetch.Outcome) {
		if !told && updater != nil && o.Payload != nil && o.Payload.Total >= 0 {
			updater.OnTotal(o.Payload.Total)
			told = true
		}
		r.OnItemComplete(o.Index, o.Status)
	}
}

// Counter tallies completions. It is embedded by the bundled reporters.
type Counter struct {
	Total     int
	Succeeded int
	Failed    int
}

// Done returns the number of completed requests.
func (c *Counter) Done() int {
	return c.Succeeded + c.Failed
}

func (c *Counter) record(status fetch.Status) {
	if status == fetch.StatusFailure {
		c.Failed++
		return
	}
	c.Succeeded++
}
