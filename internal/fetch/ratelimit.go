package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxJitter is added after any enforced wait so requests released from
// a shared wait do not re-synchronize into a thundering herd.
const maxJitter = 200 * time.Millisecond

// RateLimiter enforces a minimum inter-request interval per source
// name. Reservation through rate.Limiter makes the check-then-act
// update atomic: two concurrent callers can never both proceed off a
// stale timestamp.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// Wait blocks until one request for name may proceed given the
// source's minimum interval. A caller that had to wait also sleeps a
// uniform jitter in [0, 200ms); a caller that proceeds immediately
// gets no jitter.
func (l *RateLimiter) Wait(ctx context.Context, name string, minInterval time.Duration) error {
	if minInterval <= 0 {
		return nil
	}
	res := l.limiterFor(name, minInterval).Reserve()
	delay := res.Delay()
	if delay == 0 {
		return nil
	}
	delay += time.Duration(rand.Int63n(int64(maxJitter)))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *RateLimiter) limiterFor(name string, minInterval time.Duration) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[name]
	if !ok {
		lim = rate.NewLimiter(rate.Every(minInterval), 1)
		l.limiters[name] = lim
	}
	return lim
}
