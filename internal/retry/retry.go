package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted marks an error that survived every allowed attempt.
var ErrExhausted = errors.New("attempts exhausted")

// Backoff returns the wait before the next attempt. n is the 1-based index
// of the attempt that just failed.
type Backoff func(n int) time.Duration

// Constant waits the same duration between attempts.
func Constant(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Linear waits n×step after the n-th failure.
func Linear(step time.Duration) Backoff {
	return func(n int) time.Duration { return time.Duration(n) * step }
}

// Policy bounds how an operation is retried. The zero value runs the
// operation once with no waits.
type Policy struct {
	// Attempts is the total number of tries, minimum 1.
	Attempts int
	// Backoff computes inter-attempt waits; nil means no wait.
	Backoff Backoff
	// Retryable reports whether an error is worth another attempt;
	// nil treats every error as retryable.
	Retryable func(error) bool
	// Sleep replaces the context-aware wait, for tests.
	Sleep func(time.Duration)
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done. Exhaustion wraps both ErrExhausted and the last
// error from fn.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for n := 1; n <= attempts; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn()
		if last == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(last) {
			return last
		}
		if n == attempts {
			break
		}
		if p.Backoff != nil {
			if err := p.wait(ctx, p.Backoff(n)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, last)
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if p.Sleep != nil {
		p.Sleep(d)
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
