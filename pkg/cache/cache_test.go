package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheTypedRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := mc.Set(ctx, "k", payload{Name: "a", Count: 3}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got payload
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "a" || got.Count != 3 {
		t.Fatalf("got %+v", got)
	}

	var s string
	if err := mc.Set(ctx, "str", "plain", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := mc.Get(ctx, "str", &s); err != nil || s != "plain" {
		t.Fatalf("string round trip: %q, %v", s, err)
	}
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(time.Hour))
	defer mc.Close()
	ctx := context.Background()

	var s string
	if err := mc.Get(ctx, "absent", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("want ErrCacheMiss, got %v", err)
	}

	if err := mc.Set(ctx, "short", "v", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := mc.Get(ctx, "short", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expired key should miss, got %v", err)
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first claim: %v %v", ok, err)
	}
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || ok {
		t.Fatalf("held lock must not be reclaimed: %v %v", ok, err)
	}

	if err := mc.Unlock(ctx, "lock"); err != nil {
		t.Fatal(err)
	}
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || !ok {
		t.Fatalf("released lock should be claimable: %v %v", ok, err)
	}

	// an expired claim is as good as released
	if ok, _ := mc.TryLock(ctx, "stale", 5*time.Millisecond); !ok {
		t.Fatal("claim on fresh key")
	}
	time.Sleep(10 * time.Millisecond)
	if ok, _ := mc.TryLock(ctx, "stale", time.Minute); !ok {
		t.Fatal("expired claim should be reclaimable")
	}
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if err := mc.Set(ctx, "b", "2", time.Minute); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)

	// touch a so b becomes the LRU victim
	var s string
	if err := mc.Get(ctx, "a", &s); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if err := mc.Set(ctx, "c", "3", time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := mc.Get(ctx, "b", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("b should have been evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &s); err != nil {
		t.Fatalf("a should survive: %v", err)
	}
}
