package fetch

import (
	"context"
	"sync"
	"testing"
	"time"

	"StockPulse/pkg/cache"
)

func newTestBreakerSet(cfg BreakerConfig, now *time.Time) *BreakerSet {
	s := NewBreakerSet(cfg, nil, nil)
	s.now = func() time.Time { return *now }
	return s
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	set := newTestBreakerSet(BreakerConfig{FailureThreshold: 5}, &now)
	b := set.For("sina_daily")

	for i := 0; i < 4; i++ {
		if !b.Acquire() {
			t.Fatalf("breaker should stay closed after %d failures", i)
		}
		b.OnFailure()
	}
	if !b.Acquire() {
		t.Fatal("closed until threshold reached")
	}
	b.OnFailure() // 5th consecutive failure

	if b.CanExecute() {
		t.Fatal("breaker must refuse after reaching the failure threshold")
	}
	if st := b.Snapshot(); st.State != StateOpen {
		t.Fatalf("expected OPEN, got %s", st.State)
	}
}

func TestBreakerRecoveryCycle(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	set := newTestBreakerSet(BreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  60 * time.Second,
		HalfOpenMaxCalls: 3,
		SuccessThreshold: 2,
	}, &now)
	b := set.For("eastmoney_kline")

	for i := 0; i < 2; i++ {
		b.Acquire()
		b.OnFailure()
	}
	if b.CanExecute() {
		t.Fatal("expected OPEN")
	}

	// recovery timeout elapses: next gate check flips to HALF_OPEN
	now = now.Add(61 * time.Second)
	if !b.CanExecute() {
		t.Fatal("expected HALF_OPEN probe to be allowed")
	}
	if st := b.Snapshot(); st.State != StateHalfOpen {
		t.Fatalf("expected HALF_OPEN, got %s", st.State)
	}

	// two half-open successes close the breaker and reset the count
	for i := 0; i < 2; i++ {
		if !b.Acquire() {
			t.Fatalf("half-open call %d refused", i)
		}
		b.OnSuccess()
	}
	st := b.Snapshot()
	if st.State != StateClosed {
		t.Fatalf("expected CLOSED after success threshold, got %s", st.State)
	}
	if st.ConsecutiveFailures != 0 {
		t.Fatalf("failure count must reset, got %d", st.ConsecutiveFailures)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	set := newTestBreakerSet(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Second}, &now)
	b := set.For("tencent_spot")

	b.Acquire()
	b.OnFailure()
	now = now.Add(2 * time.Second)
	if !b.Acquire() {
		t.Fatal("expected probe allowed")
	}
	b.OnFailure()
	if st := b.Snapshot(); st.State != StateOpen {
		t.Fatalf("half-open failure must reopen, got %s", st.State)
	}
}

func TestBreakerHalfOpenCallCap(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	set := newTestBreakerSet(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Second,
		HalfOpenMaxCalls: 2,
		SuccessThreshold: 5, // high enough to stay half-open
	}, &now)
	b := set.For("yahoo_chart")

	b.Acquire()
	b.OnFailure()
	now = now.Add(2 * time.Second)

	for i := 0; i < 2; i++ {
		if !b.Acquire() {
			t.Fatalf("probe %d refused", i)
		}
	}
	if b.Acquire() {
		t.Fatal("half-open probes beyond the cap must be refused")
	}
}

func TestBreakerAcquireEnforcesCapUnderConcurrency(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	set := newTestBreakerSet(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Second,
		HalfOpenMaxCalls: 3,
		SuccessThreshold: 10,
	}, &now)
	b := set.For("eastmoney_kline")

	b.Acquire()
	b.OnFailure()
	now = now.Add(2 * time.Second)

	var wg sync.WaitGroup
	admitted := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admitted <- b.Acquire()
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for ok := range admitted {
		if ok {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("admitted %d half-open probes, cap is 3", count)
	}
}

func TestBreakerCancelUnwindsProbe(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	set := newTestBreakerSet(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Second,
		HalfOpenMaxCalls: 1,
		SuccessThreshold: 1,
	}, &now)
	b := set.For("sina_daily")

	b.Acquire()
	b.OnFailure()
	now = now.Add(2 * time.Second)
	if !b.Acquire() {
		t.Fatal("expected probe allowed")
	}
	b.OnCancel()
	if !b.Acquire() {
		t.Fatal("cancelled probe must not consume the half-open budget")
	}
}

type stubStore struct {
	cache.Service
	mu   sync.Mutex
	data map[string]BreakerStats
}

func newStubStore() *stubStore { return &stubStore{data: make(map[string]BreakerStats)} }

func (s *stubStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value.(BreakerStats)
	return nil
}

func (s *stubStore) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	*dest.(*BreakerStats) = st
	return nil
}

func TestBreakerStatePersistence(t *testing.T) {
	store := newStubStore()
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	set := NewBreakerSet(BreakerConfig{FailureThreshold: 1}, store, nil)
	set.now = func() time.Time { return now }
	b := set.For("eastmoney_kline")
	b.Acquire()
	b.OnFailure()

	// a fresh set (simulated restart) loads the persisted OPEN state
	reborn := NewBreakerSet(BreakerConfig{FailureThreshold: 1}, store, nil)
	reborn.now = func() time.Time { return now }
	if reborn.For("eastmoney_kline").CanExecute() {
		t.Fatal("persisted OPEN state must survive restart")
	}

	// an empty store degrades to a fresh CLOSED breaker
	fresh := NewBreakerSet(BreakerConfig{FailureThreshold: 1}, newStubStore(), nil)
	if !fresh.For("eastmoney_kline").CanExecute() {
		t.Fatal("missing persisted state must start CLOSED")
	}
}
