package pricedata

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryDelayIsCappedExponential(t *testing.T) {
	p := NewRetryPolicy(5, 100*time.Millisecond, time.Second, 0)
	want := []time.Duration{100, 200, 400, 800, 1000, 1000}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w*time.Millisecond {
			t.Fatalf("Delay(%d) = %v, want %v", i+1, got, w*time.Millisecond)
		}
	}
}

func TestRetryDelayAddsBoundedJitter(t *testing.T) {
	p := NewRetryPolicy(3, 100*time.Millisecond, time.Second, 50*time.Millisecond)
	p.rand = func(n int64) int64 { return n - 1 }
	if got := p.Delay(1); got != 150*time.Millisecond {
		t.Fatalf("Delay(1) with max jitter = %v", got)
	}
	p.rand = func(int64) int64 { return 0 }
	if got := p.Delay(1); got != 100*time.Millisecond {
		t.Fatalf("Delay(1) with zero jitter = %v", got)
	}
}

func TestRetryDoRetriesTransientFailures(t *testing.T) {
	p := NewRetryPolicy(3, time.Millisecond, time.Millisecond, 0)
	var slept []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return &Error{Kind: KindServerError, Status: 503}
	})
	if !IsKind(err, KindServerError) {
		t.Fatalf("expected SERVER_ERROR, got %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected 1 attempt plus 3 retries, got %d calls", calls)
	}
	if len(slept) != 3 {
		t.Fatalf("expected 3 sleeps, got %d", len(slept))
	}
}

func TestRetryDoStopsOnPermanentFailure(t *testing.T) {
	p := NewRetryPolicy(3, time.Millisecond, time.Millisecond, 0)
	p.sleep = func(context.Context, time.Duration) error { return nil }

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return &Error{Kind: KindBadRequest, Status: 400}
	})
	if !IsKind(err, KindBadRequest) || calls != 1 {
		t.Fatalf("expected single BAD_REQUEST attempt, got %v after %d calls", err, calls)
	}

	calls = 0
	plain := errors.New("boom")
	if err := p.Do(context.Background(), func(context.Context) error { calls++; return plain }); err != plain || calls != 1 {
		t.Fatalf("unclassified errors must not be retried, got %v after %d calls", err, calls)
	}
}

func TestRetryDoSucceedsAfterRecovery(t *testing.T) {
	p := NewRetryPolicy(2, time.Millisecond, time.Millisecond, 0)
	p.sleep = func(context.Context, time.Duration) error { return nil }

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return &Error{Kind: KindTimeout}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success on second attempt, got %v after %d calls", err, calls)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{context.DeadlineExceeded, KindTimeout},
		{context.Canceled, KindNetwork},
		{errors.New("weird"), KindInvalidResponse},
	}
	for _, c := range cases {
		if got := classify(c.err); !IsKind(got, c.kind) {
			t.Fatalf("classify(%v) = %v, want %s", c.err, got, c.kind)
		}
	}
	for status, kind := range map[int]ErrorKind{400: KindBadRequest, 404: KindNotFound, 429: KindRateLimit, 502: KindServerError, 418: KindInvalidResponse} {
		if got := kindForStatus(status); got != kind {
			t.Fatalf("kindForStatus(%d) = %s, want %s", status, got, kind)
		}
	}
}
