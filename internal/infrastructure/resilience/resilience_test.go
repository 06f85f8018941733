package resilience

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

var testLogger = slog.New(slog.DiscardHandler)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2,
		BreakerEnabled: false,
	}
}

func retryAll(error) Outcome { return Outcome{Retry: true, CountAsFailure: true} }

func TestRetriesUntilSuccess(t *testing.T) {
	runner := NewRunner(fastPolicy(), testLogger)

	calls := 0
	err := runner.Do(context.Background(), "op", retryAll, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestStopsAtMaxAttempts(t *testing.T) {
	runner := NewRunner(fastPolicy(), testLogger)

	calls := 0
	wantErr := errors.New("always failing")
	err := runner.Do(context.Background(), "op", retryAll, func(context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the last attempt error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	runner := NewRunner(fastPolicy(), testLogger)

	calls := 0
	err := runner.Do(context.Background(), "op",
		func(error) Outcome { return Outcome{Retry: false} },
		func(context.Context) error {
			calls++
			return errors.New("bad request")
		})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCancelledContextStopsRetries(t *testing.T) {
	runner := NewRunner(fastPolicy(), testLogger)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := runner.Do(ctx, "op", retryAll, func(context.Context) error {
		calls++
		cancel()
		return errors.New("flaky")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancellation", calls)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	policy := fastPolicy()
	policy.MaxAttempts = 1
	policy.BreakerEnabled = true
	policy.BreakerMinRequests = 3
	policy.BreakerFailureRatio = 0.5
	policy.BreakerCooldown = time.Minute
	runner := NewRunner(policy, testLogger)

	for range 3 {
		_ = runner.Do(context.Background(), "op", retryAll, func(context.Context) error {
			return errors.New("down")
		})
	}

	calls := 0
	err := runner.Do(context.Background(), "op", retryAll, func(context.Context) error {
		calls++
		return nil
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("err = %v, want open circuit", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 while the breaker is open", calls)
	}
}

func TestBreakersIsolatedPerOperation(t *testing.T) {
	policy := fastPolicy()
	policy.MaxAttempts = 1
	policy.BreakerEnabled = true
	policy.BreakerMinRequests = 3
	runner := NewRunner(policy, testLogger)

	for range 3 {
		_ = runner.Do(context.Background(), "broken", retryAll, func(context.Context) error {
			return errors.New("down")
		})
	}

	if err := runner.Do(context.Background(), "healthy", retryAll, func(context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("healthy operation affected by broken one: %v", err)
	}
}

func TestPolicyDefaults(t *testing.T) {
	p := Policy{}.withDefaults()
	if p.MaxAttempts != 3 || p.InitialBackoff == 0 || p.BackoffFactor < 1 {
		t.Errorf("defaults not applied: %+v", p)
	}
	if p.BreakerMinRequests == 0 || p.BreakerFailureRatio == 0 || p.BreakerCooldown == 0 {
		t.Errorf("breaker defaults not applied: %+v", p)
	}
}
