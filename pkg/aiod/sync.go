package aiod

import (
	"context"

	"github.com/Sternrassler/aiod-client/pkg/faults"
	"github.com/Sternrassler/aiod-client/pkg/fetch"
)

// NestingPolicy decides whether a synchronous run may start inside another.
type NestingPolicy int

const (
	// ForbidNesting rejects a synchronous run started from within the scope
	// of another one with a ConfigurationError.
	ForbidNesting NestingPolicy = iota

	// AllowNesting lets nested runs create their own scope.
	AllowNesting
)

// Pipeline is a unit of work driven by RunSync.
type Pipeline func(ctx context.Context) (fetch.BatchResult, error)

type scopeKey struct{}

// InScope reports whether ctx belongs to a RunSync scope.
func InScope(ctx context.Context) bool {
	return ctx != nil && ctx.Value(scopeKey{}) != nil
}

// RunSync runs pipeline under ForbidNesting; see RunSyncWithPolicy.
func RunSync(ctx context.Context, pipeline Pipeline) (fetch.BatchResult, error) {
	return RunSyncWithPolicy(ctx, ForbidNesting, pipeline)
}

// RunSyncWithPolicy runs pipeline to completion in a private scope: a
// cancellable context derived from ctx (context.Background if nil), which is
// cancelled once the pipeline returns or panics. A panic is re-raised in the
// caller after the scope is torn down.
func RunSyncWithPolicy(ctx context.Context, policy NestingPolicy, pipeline Pipeline) (fetch.BatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if InScope(ctx) && policy != AllowNesting {
		return fetch.BatchResult{}, faults.Configf("sync", "synchronous run started inside another synchronous run")
	}

	scope, cancel := context.WithCancel(context.WithValue(ctx, scopeKey{}, struct{}{}))
	defer cancel()

	type completion struct {
		result   fetch.BatchResult
		err      error
		panicked any
	}
	done := make(chan completion, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- completion{panicked: r}
			}
		}()
		result, err := pipeline(scope)
		done <- completion{result: result, err: err}
	}()

	c := <-done
	cancel()
	if c.panicked != nil {
		panic(c.panicked)
	}
	return c.result, c.err
}
