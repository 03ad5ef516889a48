package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		RateLimitBase:  time.Millisecond,
		DisconnectBase: time.Millisecond,
	}
}

func oneRowTable() models.RawTable {
	t := models.RawTable{Columns: []string{"date", "close"}}
	t.AppendRow("2024-01-02", "10.0")
	return t
}

func TestRetryReturnsFirstNonEmpty(t *testing.T) {
	calls := 0
	table, err := fastPolicy().Run(context.Background(), 3, func(context.Context) (models.RawTable, error) {
		calls++
		if calls < 3 {
			return models.RawTable{}, errors.New("connection timed out")
		}
		return oneRowTable(), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Empty() || calls != 3 {
		t.Fatalf("expected success on 3rd call, calls=%d", calls)
	}
}

func TestRetryPermanentAbortsImmediately(t *testing.T) {
	calls := 0
	_, err := fastPolicy().Run(context.Background(), 5, func(context.Context) (models.RawTable, error) {
		calls++
		return models.RawTable{}, Permanentf("adapter called with wrong argument shape")
	})
	if calls != 1 {
		t.Fatalf("permanent errors must not be retried, calls=%d", calls)
	}
	var pe *PermanentError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PermanentError, got %v", err)
	}
}

func TestRetryEmptyExhaustionIsNotAnError(t *testing.T) {
	calls := 0
	table, err := fastPolicy().Run(context.Background(), 3, func(context.Context) (models.RawTable, error) {
		calls++
		return models.RawTable{}, nil
	})
	if err != nil {
		t.Fatalf("empty results signal no data, not failure: %v", err)
	}
	if !table.Empty() || calls != 3 {
		t.Fatalf("expected 3 empty attempts, calls=%d", calls)
	}
}

func TestRetryErrorExhaustionPropagatesLast(t *testing.T) {
	_, err := fastPolicy().Run(context.Background(), 2, func(context.Context) (models.RawTable, error) {
		return models.RawTable{}, errors.New("connection reset by peer")
	})
	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError, got %v", err)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := fastPolicy().Run(ctx, 10, func(context.Context) (models.RawTable, error) {
		calls++
		cancel()
		return models.RawTable{}, errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("cancelled run must stop, calls=%d", calls)
	}
}

func TestDelayCapAndBackoffGrowth(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}.withDefaults()
	if d := p.delay(10, p.BaseDelay); d != p.MaxDelay {
		t.Fatalf("delay must cap at MaxDelay, got %v", d)
	}
	// attempt 0 delay stays under base + 1s jitter
	if d := p.delay(0, p.BaseDelay); d > p.BaseDelay+time.Second {
		t.Fatalf("unexpected attempt-0 delay %v", d)
	}
}

func TestErrorClassification(t *testing.T) {
	if !isRateLimited(errors.New("HTTP 429 Too Many Requests")) {
		t.Error("429 must classify as rate limited")
	}
	if !isDisconnect(errors.New("read tcp: connection reset by peer")) {
		t.Error("reset must classify as disconnect")
	}
	if isRateLimited(errors.New("no route to host")) || isDisconnect(errors.New("no route to host")) {
		t.Error("generic network error misclassified")
	}
}
