package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BreakerEnabled: false,
	}
}

func TestRetriesUntilSuccess(t *testing.T) {
	executor := NewExecutor(fastConfig())

	calls := 0
	err := executor.Execute(context.Background(), "op",
		func(error) Classification { return Classification{Retryable: true, RecordFailure: true} },
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	executor := NewExecutor(fastConfig())

	calls := 0
	wantErr := errors.New("permanent")
	err := executor.Execute(context.Background(), "op",
		func(error) Classification { return Classification{Retryable: false} },
		func(context.Context) error {
			calls++
			return wantErr
		})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	cfg.MaxAttempts = 1
	executor := NewExecutor(cfg)

	classify := func(error) Classification { return Classification{RecordFailure: true} }
	boom := func(context.Context) error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		_ = executor.Execute(context.Background(), "op", classify, boom)
	}

	err := executor.Execute(context.Background(), "op", classify, boom)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestContextCancelStopsRetry(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 10
	cfg.InitialBackoff = 50 * time.Millisecond
	executor := NewExecutor(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_ = executor.Execute(ctx, "op",
		func(error) Classification { return Classification{Retryable: true, RecordFailure: true} },
		func(context.Context) error {
			calls++
			return errors.New("transient")
		})
	if calls > 2 {
		t.Fatalf("calls = %d, cancellation should stop retries", calls)
	}
}
