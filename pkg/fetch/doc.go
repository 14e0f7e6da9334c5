// Package fetch is the concurrent core of the catalogue client.
//
// An Executor dispatches planned requests with a bounded number in flight and
// emits one Outcome per request as it completes, tagged with the request's
// original index. The executor never reorders; Assemble buffers the outcomes
// and restores input order, separating successes from failures.
//
//	exec, _ := fetch.NewExecutor(fetch.ExecutorConfig{Concurrency: 8})
//	outcomes := exec.Run(ctx, specs, transport, onComplete)
//	result, err := fetch.Assemble(ctx, outcomes, len(specs))
//	payloads, err := result.Unwrap() // aggregates every failure into one error
//
// Per-request failures (transport errors, non-2xx statuses, malformed bodies,
// timeouts) never cross the executor boundary as errors; they are recorded on
// the Outcome and only escalated by BatchResult.Unwrap.
package fetch
