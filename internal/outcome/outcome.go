// Package outcome races alternative observations of the same action, such
// as "a new tab opened" against "this tab navigated".
package outcome

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Outcome observes one possible result. It must return promptly once ctx
// is done.
type Outcome[T any] func(ctx context.Context) (T, error)

// First runs outcomes concurrently and returns the first success,
// cancelling the others. If none succeeds within timeout (no limit when
// zero), fallback runs with the parent context and its result is returned.
// Without a fallback the outcomes' errors are joined.
func First[T any](ctx context.Context, timeout time.Duration, fallback Outcome[T], outcomes ...Outcome[T]) (T, error) {
	var (
		raceCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		raceCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		raceCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type result struct {
		value T
		err   error
		index int
	}
	results := make(chan result, len(outcomes))

	var g errgroup.Group
	for i, o := range outcomes {
		g.Go(func() error {
			v, err := o(raceCtx)
			results <- result{value: v, err: err, index: i}
			return nil
		})
	}

	var errs []error
	for range outcomes {
		r := <-results
		if r.err == nil {
			cancel()
			g.Wait()
			return r.value, nil
		}
		errs = append(errs, fmt.Errorf("outcome %d: %w", r.index, r.err))
	}
	g.Wait()

	if fallback == nil {
		var zero T
		if len(errs) == 0 {
			return zero, errors.New("no outcomes")
		}
		return zero, errors.Join(errs...)
	}
	return fallback(ctx)
}
