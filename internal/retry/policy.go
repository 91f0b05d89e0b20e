package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrExhausted is returned by Do when MaxAttempts is reached.
var ErrExhausted = errors.New("retry attempts exhausted")

// BackoffFunc returns how long to wait before the given attempt (1-indexed,
// the first retry is attempt 2).
type BackoffFunc func(attempt int) time.Duration

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts bounds the number of calls. Zero means unbounded.
	MaxAttempts int

	// Backoff computes the wait between attempts. Nil means no wait.
	Backoff BackoffFunc
}

// Unbounded returns a policy that retries forever with the given backoff.
func Unbounded(backoff BackoffFunc) *Policy {
	return &Policy{Backoff: backoff}
}

// RandomBackoff waits a uniformly random duration in [min, max].
func RandomBackoff(min, max time.Duration) BackoffFunc {
	if max < min {
		min, max = max, min
	}
	return func(int) time.Duration {
		if max == min {
			return min
		}
		return min + rand.N(max-min+1)
	}
}

// NoBackoff never waits.
func NoBackoff(int) time.Duration { return 0 }

// Wait blocks for the backoff of the given attempt or until ctx is done.
func (p *Policy) Wait(ctx context.Context, attempt int) error {
	var d time.Duration
	if p != nil && p.Backoff != nil {
		d = p.Backoff(attempt)
	}
	if d <= 0 {
		return ctx.Err()
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

// Allows reports whether another attempt may be made after attempt calls.
func (p *Policy) Allows(attempt int) bool {
	return p == nil || p.MaxAttempts <= 0 || attempt < p.MaxAttempts
}

// Do calls fn until it returns nil, a permanent error, or the policy runs out
// of attempts. A cancelled ctx stops the loop at once and its error is
// returned as-is.
func (p *Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if IsPermanent(err) {
			return err
		}
		if !p.Allows(attempt) {
			return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
		}
		if err := p.Wait(ctx, attempt+1); err != nil {
			return err
		}
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	if IsPermanent(err) {
		return err
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
