package expect

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Check observes the page once. It returns a description of what it saw,
// whether the condition holds, and any error hit while observing. Errors
// are treated as "not yet" and retried.
type Check func(ctx context.Context) (observed string, ok bool, err error)

// Poll re-runs check every interval until it holds or timeout elapses, in
// which case it returns a *TimeoutError. If ctx itself ends first, the
// context error is returned instead.
func Poll(ctx context.Context, what string, timeout, interval time.Duration, check Check) error {
	start := time.Now()

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(interval), 1)

	var last string
	var lastErr error
	for limiter.Wait(pollCtx) == nil {
		observed, ok, err := check(pollCtx)
		if err == nil && ok {
			return nil
		}
		last, lastErr = observed, err
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", what, ctx.Err())
	}
	return &TimeoutError{
		What:    what,
		Timeout: timeout,
		Elapsed: time.Since(start),
		Last:    last,
		LastErr: lastErr,
	}
}
