package pricedata

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryPolicy retries transient failures with capped exponential backoff plus jitter.
type RetryPolicy struct {
	// Max is the number of retries after the first attempt.
	Max       int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    time.Duration

	rand  func(n int64) int64
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryPolicy(max int, base, maxDelay, jitter time.Duration) RetryPolicy {
	return RetryPolicy{Max: max, BaseDelay: base, MaxDelay: maxDelay, Jitter: jitter}
}

// Delay returns min(base*2^(attempt-1), max) + jitter in [0, Jitter].
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(p.randInt(int64(p.Jitter) + 1))
	}
	return d
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// retry budget is exhausted. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 0; attempt <= p.Max; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		var pe *Error
		if !errors.As(err, &pe) || !pe.Retryable() || ctx.Err() != nil {
			return err
		}
		if attempt == p.Max {
			break
		}
		if err := p.doSleep(ctx, p.Delay(attempt+1)); err != nil {
			return last
		}
	}
	return last
}

func (p RetryPolicy) randInt(n int64) int64 {
	if p.rand != nil {
		return p.rand(n)
	}
	return rand.Int64N(n)
}

func (p RetryPolicy) doSleep(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
