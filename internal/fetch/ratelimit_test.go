package fetch

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterEnforcesInterval(t *testing.T) {
	l := NewRateLimiter()
	ctx := context.Background()

	if err := l.Wait(ctx, "src", 50*time.Millisecond); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "src", 50*time.Millisecond); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("second call proceeded too early: %v", elapsed)
	}
}

func TestRateLimiterIndependentPerSource(t *testing.T) {
	l := NewRateLimiter()
	ctx := context.Background()

	if err := l.Wait(ctx, "a", time.Second); err != nil {
		t.Fatalf("wait a: %v", err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "b", time.Second); err != nil {
		t.Fatalf("wait b: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("different sources must not share intervals, waited %v", elapsed)
	}
}

func TestRateLimiterCancellable(t *testing.T) {
	l := NewRateLimiter()
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Wait(ctx, "slow", 10*time.Second); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := l.Wait(ctx, "slow", 10*time.Second); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRateLimiterZeroIntervalNoop(t *testing.T) {
	l := NewRateLimiter()
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background(), "free", 0); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatal("zero interval must never block")
	}
}
