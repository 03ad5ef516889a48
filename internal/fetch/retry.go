package fetch

import (
	"context"
	"math"
	"math/rand"
	"time"

	"StockPulse/internal/domain/models"
)

// RetryPolicy wraps a single adapter call with bounded retries and
// exponential backoff. Adapters themselves are single-attempt; this is
// the only layer that retries.
type RetryPolicy struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	// Amplified bases for failures that signal upstream pushback.
	RateLimitBase  time.Duration `yaml:"rate_limit_base"`
	DisconnectBase time.Duration `yaml:"disconnect_base"`
}

// DefaultRetryPolicy mirrors the tuning that held up in production:
// modest base, 429s cool down at 2s, disconnects (likely IP blocks)
// at 3s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		BaseDelay:      600 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		RateLimitBase:  2 * time.Second,
		DisconnectBase: 3 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxRetries <= 0 {
		p.MaxRetries = d.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.RateLimitBase <= 0 {
		p.RateLimitBase = d.RateLimitBase
	}
	if p.DisconnectBase <= 0 {
		p.DisconnectBase = d.DisconnectBase
	}
	return p
}

// delay computes min(base * 2^attempt + uniform(0,1)s, MaxDelay).
func (p RetryPolicy) delay(attempt int, base time.Duration) time.Duration {
	backoff := float64(base) * math.Pow(2, float64(attempt))
	backoff += rand.Float64() * float64(time.Second)
	if backoff > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(backoff)
}

// Run invokes fn up to MaxRetries times, backing off between attempts.
// It returns the first non-empty table. An empty table after
// exhaustion comes back with a nil error (the "no data" signal); an
// error is only returned when every attempt raised, or immediately
// when a failure is permanent.
func (p RetryPolicy) Run(ctx context.Context, maxRetries int, fn func(context.Context) (models.RawTable, error)) (models.RawTable, error) {
	p = p.withDefaults()
	if maxRetries <= 0 {
		maxRetries = p.MaxRetries
	}

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		table, err := fn(ctx)
		if err == nil {
			if !table.Empty() {
				return table, nil
			}
			lastErr = nil
		} else {
			if isPermanent(err) {
				return models.RawTable{}, err
			}
			if ctx.Err() != nil {
				// caller cancelled; do not burn remaining attempts
				return models.RawTable{}, ctx.Err()
			}
			lastErr = err
		}

		if attempt == maxRetries-1 {
			break
		}

		base := p.BaseDelay
		if lastErr != nil {
			switch {
			case isRateLimited(lastErr):
				base = p.RateLimitBase
			case isDisconnect(lastErr):
				base = p.DisconnectBase
			}
		}
		if err := sleepCtx(ctx, p.delay(attempt, base)); err != nil {
			return models.RawTable{}, err
		}
	}

	if lastErr != nil {
		return models.RawTable{}, &TransientError{Err: lastErr}
	}
	return models.RawTable{}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
