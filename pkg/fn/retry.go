package fn

import (
	"context"
	"math"
	"time"
)

// RetryOpts configures retry behavior. The wait before attempt n is
// MinWait * Multiplier^n, capped at MaxWait.
type RetryOpts struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	// OnRetry, if set, is called before each backoff sleep with the
	// 1-based attempt number, the error, and the computed wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultRetry provides sensible retry defaults.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	MinWait:     time.Second,
	MaxWait:     30 * time.Second,
	Multiplier:  2,
}

// Backoff returns the wait duration after the given 0-based attempt.
func (o RetryOpts) Backoff(attempt int) time.Duration {
	mult := o.Multiplier
	if mult < 1 {
		mult = 1
	}
	wait := time.Duration(float64(o.MinWait) * math.Pow(mult, float64(attempt)))
	if wait < o.MinWait {
		wait = o.MinWait
	}
	if o.MaxWait > 0 && wait > o.MaxWait {
		wait = o.MaxWait
	}
	return wait
}

// Retry runs f up to MaxAttempts times with exponential backoff.
// The last failure is returned once the attempt budget is exhausted.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	var result Result[T]

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		result = f(ctx)
		if result.IsOk() {
			return result
		}
		if attempt == opts.MaxAttempts-1 {
			break
		}

		wait := opts.Backoff(attempt)
		if opts.OnRetry != nil {
			_, err := result.Unwrap()
			opts.OnRetry(attempt+1, err, wait)
		}

		select {
		case <-ctx.Done():
			return Err[T](ctx.Err())
		case <-time.After(wait):
		}
	}
	return result
}

// RetryStage wraps a Stage with retry logic.
func RetryStage[In, Out any](opts RetryOpts, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return Retry(ctx, opts, func(ctx context.Context) Result[Out] {
			return stage(ctx, in)
		})
	}
}
