package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var errTransient = &OperationError{Op: "reports.run", StatusCode: 503, Err: errors.New("unavailable")}

func noJitter(r *RetryExecutor) *RetryExecutor {
	r.jitter = func() float64 { return 1.0 }
	return r
}

func TestNewRetryExecutor_Defaults(t *testing.T) {
	r := NewRetryExecutor(RetryPolicy{})
	p := r.Policy()

	if p.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", p.MaxAttempts)
	}
	if p.BaseDelay != 100*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 100ms", p.BaseDelay)
	}
	if p.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", p.MaxDelay)
	}
	if p.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %f, want 2.0", p.BackoffMultiplier)
	}
	if len(p.RetryableCategories) != len(DefaultRetryableCategories) {
		t.Errorf("RetryableCategories = %v, want defaults", p.RetryableCategories)
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	r := NewRetryExecutor(RetryPolicy{MaxAttempts: 3})

	attempts := 0
	got, err := r.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		attempts++
		return "ok", nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Execute() = %v, want ok", got)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_AttemptBound(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("max=%d", n), func(t *testing.T) {
			r := noJitter(NewRetryExecutor(RetryPolicy{
				MaxAttempts: n,
				BaseDelay:   time.Millisecond,
			}))

			attempts := 0
			_, err := r.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
				attempts++
				return nil, errTransient
			})

			if attempts != n {
				t.Errorf("attempts = %d, want %d", attempts, n)
			}
			if err != errTransient {
				t.Errorf("Execute() error = %v, want original error", err)
			}
		})
	}
}

func TestRetry_NonRetryablePropagatesImmediately(t *testing.T) {
	r := NewRetryExecutor(RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond})

	notFound := &OperationError{Op: "resources.get", StatusCode: 404}
	attempts := 0
	_, err := r.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		attempts++
		return nil, notFound
	})

	if err != notFound {
		t.Errorf("Execute() error = %v, want %v", err, notFound)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_GovernanceErrorsNotRetried(t *testing.T) {
	r := NewRetryExecutor(RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond})

	attempts := 0
	_, err := r.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		attempts++
		return nil, ErrQueueFull
	})

	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Execute() error = %v, want ErrQueueFull", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_CustomCategories(t *testing.T) {
	r := NewRetryExecutor(RetryPolicy{
		MaxAttempts:         3,
		BaseDelay:           time.Millisecond,
		RetryableCategories: []Category{CategoryNotFound},
	})

	t.Run("listed category retried", func(t *testing.T) {
		attempts := 0
		_, _ = r.Execute(context.Background(), "a", func(ctx context.Context) (any, error) {
			attempts++
			return nil, &OperationError{StatusCode: 404}
		})
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("default category no longer retried", func(t *testing.T) {
		attempts := 0
		_, _ = r.Execute(context.Background(), "b", func(ctx context.Context) (any, error) {
			attempts++
			return nil, errTransient
		})
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})
}

func TestRetry_ContextCancellation(t *testing.T) {
	r := NewRetryExecutor(RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := r.Execute(ctx, "op", func(ctx context.Context) (any, error) {
		return nil, errTransient
	})

	if err != context.Canceled {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var delays []time.Duration

	r := noJitter(NewRetryExecutor(RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		OnRetry: func(id string, attempt int, err error, delay time.Duration) {
			if id != "jobs.schedule" {
				t.Errorf("OnRetry id = %q, want jobs.schedule", id)
			}
			delays = append(delays, delay)
		},
	}))

	_, _ = r.Execute(context.Background(), "jobs.schedule", func(ctx context.Context) (any, error) {
		return nil, errTransient
	})

	if len(delays) != 2 {
		t.Fatalf("callbacks = %d, want 2", len(delays))
	}
	if delays[0] != 10*time.Millisecond || delays[1] != 20*time.Millisecond {
		t.Errorf("delays = %v, want [10ms 20ms]", delays)
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{
		BaseDelay:         10 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 3,
	}.withDefaults()

	var prev time.Duration
	for attempt := 1; attempt <= 20; attempt++ {
		d := p.Delay(attempt)
		if d < prev {
			t.Errorf("Delay(%d) = %v, smaller than previous %v", attempt, d, prev)
		}
		if d > p.MaxDelay {
			t.Errorf("Delay(%d) = %v exceeds MaxDelay %v", attempt, d, p.MaxDelay)
		}
		prev = d
	}

	if d := p.Delay(3); d != 90*time.Millisecond {
		t.Errorf("Delay(3) = %v, want 90ms", d)
	}
	if d := p.Delay(100); d != time.Second {
		t.Errorf("Delay(100) = %v, want capped 1s", d)
	}
}

func TestRetry_JitterRange(t *testing.T) {
	r := NewRetryExecutor(RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		Jitter:      true,
	})
	p := r.Policy()

	for i := 0; i < 1000; i++ {
		d := r.backoff(p, 2)
		if d < 100*time.Millisecond || d > 200*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 200ms]", d)
		}
	}
}

func TestRetry_Outcomes(t *testing.T) {
	r := noJitter(NewRetryExecutor(RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}))

	attempts := 0
	start := time.Now()
	got, err := r.Execute(context.Background(), "reports.run", func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errTransient
		}
		return 42, nil
	})
	elapsed := time.Since(start)

	if err != nil || got != 42 {
		t.Fatalf("Execute() = %v, %v; want 42, nil", got, err)
	}
	if elapsed < 30*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 30ms", elapsed)
	}

	o, ok := r.Outcome("reports.run")
	if !ok {
		t.Fatal("Outcome not recorded")
	}
	if o.Successes != 1 || o.Failures != 2 || o.TotalAttempts != 3 {
		t.Errorf("Outcome = %+v, want successes=1 failures=2 attempts=3", o)
	}
	if o.LastFailureReason != errTransient.Error() {
		t.Errorf("LastFailureReason = %q, want %q", o.LastFailureReason, errTransient.Error())
	}
	if o.SuccessRate < 0.333 || o.SuccessRate > 0.334 {
		t.Errorf("SuccessRate = %f, want 1/3", o.SuccessRate)
	}

	r.Reset("reports.run")
	if _, ok := r.Outcome("reports.run"); ok {
		t.Error("Outcome should be cleared after Reset")
	}
}

func TestRetry_AnonymousOperation(t *testing.T) {
	r := NewRetryExecutor(RetryPolicy{})
	_, _ = r.Execute(context.Background(), "", func(ctx context.Context) (any, error) {
		return nil, nil
	})

	if _, ok := r.Outcome(AnonymousOperation); !ok {
		t.Error("empty operation ID should be recorded as anonymous")
	}

	r.ResetAll()
	if n := len(r.Outcomes()); n != 0 {
		t.Errorf("Outcomes() after ResetAll = %d entries, want 0", n)
	}
}

func TestRetry_ExecuteWithPolicy(t *testing.T) {
	r := NewRetryExecutor(RetryPolicy{MaxAttempts: 1})

	attempts := 0
	_, _ = r.ExecuteWithPolicy(context.Background(), RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond}, "op",
		func(ctx context.Context) (any, error) {
			attempts++
			return nil, errTransient
		})

	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
}
