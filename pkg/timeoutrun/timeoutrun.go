// Package timeoutrun bounds a unit of work to a deadline using native
// context propagation, per the "prefer deadline/context over a sidecar
// timer" guidance this runtime follows throughout: Run races the work,
// on its own goroutine, against the deadline of a context.WithTimeout
// and starts no separate timer.
package timeoutrun

import (
	"context"
	"time"

	"encore.app/pkg/apierr"
)

// Run executes fn with a derived context bounded by timeout. If fn does
// not return before the deadline, Run returns a TIMEOUT_ERROR; fn's
// goroutine is left to finish on its own (Go has no preemptive cancel),
// but ctx.Done() lets well-behaved fn implementations exit early.
func Run[T any](ctx context.Context, timeout time.Duration, message string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return fn(ctx)
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan result[T], 1)
	go func() {
		v, err := fn(deadlineCtx)
		resultCh <- result[T]{v, err}
	}()

	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-deadlineCtx.Done():
		return zero, apierr.New(apierr.CodeTimeout, "%s", message).WithDetails(map[string]any{
			"timeoutMs": timeout.Milliseconds(),
		})
	}
}

type result[T any] struct {
	value T
	err   error
}
