// Package fetch implements the resilient multi-source fetch
// orchestrator: rate limiting, circuit breaking, retry with backoff,
// and sequential or racing fallback across the source registry.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
	"StockPulse/internal/normalize"
	"StockPulse/internal/source"
	applogger "StockPulse/pkg/logger"
)

// Attempt outcomes recorded to metrics.
const (
	outcomeSuccess     = "success"
	outcomeEmpty       = "empty"
	outcomeError       = "error"
	outcomeBadData     = "bad_data"
	outcomeBreakerOpen = "breaker_open"
)

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithRetryPolicy overrides the default retry tuning.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) { o.retry = p.withDefaults() }
}

// WithOverallTimeout bounds one racing fetch wall-clock.
func WithOverallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.overallTimeout = d
		}
	}
}

// WithMetrics attaches an observability recorder.
func WithMetrics(m repository.Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// Orchestrator coordinates adapters behind rate limiting, circuit
// breaking and retries. Construct it once at startup and inject it;
// it holds no request state.
type Orchestrator struct {
	registry *source.Registry
	limiter  *RateLimiter
	breakers *BreakerSet
	retry    RetryPolicy
	metrics  repository.Metrics
	logger   *applogger.Logger

	overallTimeout time.Duration
}

// New builds the orchestrator around a frozen registry.
func New(reg *source.Registry, breakers *BreakerSet, log *applogger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:       reg,
		limiter:        NewRateLimiter(),
		breakers:       breakers,
		retry:          DefaultRetryPolicy(),
		metrics:        repository.NopMetrics{},
		logger:         log,
		overallTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.breakers.OnStateChange(func(src, state string) {
		o.metrics.RecordBreakerState(src, state)
	})
	return o
}

// BreakerStats exposes the per-source breaker snapshots.
func (o *Orchestrator) BreakerStats() map[string]BreakerStats {
	return o.breakers.Stats()
}

// FetchSequential walks the segment's sources in ascending priority
// and returns the first validated series. Total upstream volume is
// minimized: one source in flight at a time, short-circuit on first
// success.
func (o *Orchestrator) FetchSequential(ctx context.Context, id models.SecurityIdentifier, dr models.DateRange) models.FetchResult {
	return o.fetchSequential(ctx, id, dr, false)
}

func (o *Orchestrator) fetchSequential(ctx context.Context, id models.SecurityIdentifier, dr models.DateRange, probe bool) models.FetchResult {
	started := time.Now()
	if err := dr.Validate(); err != nil {
		return failure("", time.Since(started), err.Error())
	}

	sources := o.registry.Sources(id.Segment)
	if len(sources) == 0 {
		return failure("", time.Since(started), fmt.Sprintf("no sources configured for segment %s", id.Segment))
	}

	attempts := make([]Attempt, 0, len(sources))
	for _, desc := range sources {
		series, att := o.trySource(ctx, desc, id, dr, probe)
		if att == nil {
			o.metrics.RecordFetchDuration(string(id.Segment), time.Since(started).Seconds())
			o.logger.Info("fetch succeeded",
				applogger.String("identifier", id.String()),
				applogger.String("source", desc.Name),
				applogger.Int("rows", series.Len()),
				applogger.Duration("elapsed", time.Since(started)))
			return models.FetchResult{
				Success:    true,
				Series:     series,
				SourceName: desc.Name,
				Elapsed:    time.Since(started),
			}
		}
		attempts = append(attempts, *att)
		if ctx.Err() != nil {
			break
		}
	}

	exhausted := &ExhaustedError{Identifier: id, Attempts: attempts}
	o.logger.Warn("fetch exhausted all sources",
		applogger.String("identifier", id.String()),
		applogger.Int("sources_tried", len(attempts)))
	return failure("", time.Since(started), exhausted.Error())
}

// FetchRacing launches the top-N sources concurrently and adopts the
// first validated success, cancelling the rest. There is no fallback
// beyond the initial N: racing already picked the most promising
// subset, minimizing latency at the cost of redundant requests.
func (o *Orchestrator) FetchRacing(ctx context.Context, id models.SecurityIdentifier, dr models.DateRange, concurrency int) models.FetchResult {
	started := time.Now()
	if err := dr.Validate(); err != nil {
		return failure("", time.Since(started), err.Error())
	}

	sources := o.registry.Sources(id.Segment)
	if len(sources) == 0 {
		return failure("", time.Since(started), fmt.Sprintf("no sources configured for segment %s", id.Segment))
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	if concurrency > len(sources) {
		concurrency = len(sources)
	}
	racers := sources[:concurrency]

	raceCtx, cancel := context.WithTimeout(ctx, o.overallTimeout)
	defer cancel()

	type outcome struct {
		desc    source.Descriptor
		series  models.PriceSeries
		attempt *Attempt
	}
	results := make(chan outcome, len(racers))

	for _, desc := range racers {
		go func(desc source.Descriptor) {
			series, att := o.trySource(raceCtx, desc, id, dr, false)
			results <- outcome{desc: desc, series: series, attempt: att}
		}(desc)
	}

	attempts := make([]Attempt, 0, len(racers))
	for range racers {
		select {
		case <-raceCtx.Done():
			attempts = append(attempts, Attempt{Source: "race", Reason: "overall timeout"})
			return failure("", time.Since(started), (&ExhaustedError{Identifier: id, Attempts: attempts}).Error())
		case out := <-results:
			if out.attempt == nil {
				cancel() // losers abort; their state updates already happened
				o.metrics.RecordFetchDuration(string(id.Segment), time.Since(started).Seconds())
				o.logger.Info("race adopted fastest source",
					applogger.String("identifier", id.String()),
					applogger.String("source", out.desc.Name),
					applogger.Duration("elapsed", time.Since(started)))
				return models.FetchResult{
					Success:    true,
					Series:     out.series,
					SourceName: out.desc.Name,
					Elapsed:    time.Since(started),
				}
			}
			attempts = append(attempts, *out.attempt)
		}
	}

	return failure("", time.Since(started), (&ExhaustedError{Identifier: id, Attempts: attempts}).Error())
}

// TestConnectivity probes every configured segment with its fixed
// smoke-test identifier over a short trailing window. Probes run in
// probe mode: the short window pairs with a one-row floor, and thin or
// empty results leave breaker state untouched so a health check cannot
// walk a working source toward OPEN.
func (o *Orchestrator) TestConnectivity(ctx context.Context, resolve func(segment models.MarketSegment) (models.SecurityIdentifier, error)) map[models.MarketSegment]bool {
	now := time.Now()
	dr := models.DateRange{Start: now.AddDate(0, 0, -5), End: now}

	results := make(map[models.MarketSegment]bool)
	for _, segment := range o.registry.Segments() {
		id, err := resolve(segment)
		if err != nil {
			results[segment] = false
			continue
		}
		res := o.fetchSequential(ctx, id, dr, true)
		results[segment] = res.Success
	}
	return results
}

// trySource runs the full pipeline for one source: rate limit, breaker
// gate, retried adapter call, then normalization. A nil Attempt means
// success and the series is valid. In probe mode the row floor drops
// to one and data-shape failures (empty, below floor) do not count
// against the breaker.
func (o *Orchestrator) trySource(ctx context.Context, desc source.Descriptor, id models.SecurityIdentifier, dr models.DateRange, probe bool) (models.PriceSeries, *Attempt) {
	if err := o.limiter.Wait(ctx, desc.Name, desc.MinInterval); err != nil {
		return nil, &Attempt{Source: desc.Name, Reason: "cancelled while rate limited"}
	}

	breaker := o.breakers.For(desc.Name)
	if !breaker.Acquire() {
		o.metrics.RecordFetchAttempt(desc.Name, outcomeBreakerOpen)
		o.logger.Debug("breaker open, skipping source", applogger.String("source", desc.Name))
		return nil, &Attempt{Source: desc.Name, Reason: "circuit breaker open"}
	}

	table, err := o.retry.Run(ctx, desc.MaxRetries, func(ctx context.Context) (models.RawTable, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, desc.Timeout)
		defer cancel()
		return desc.Adapter.Fetch(attemptCtx, id.Code, dr.StartKey(), dr.EndKey())
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// lost a race; not a source failure
			breaker.OnCancel()
			return nil, &Attempt{Source: desc.Name, Reason: "cancelled"}
		}
		breaker.OnFailure()
		o.metrics.RecordFetchAttempt(desc.Name, outcomeError)
		o.logger.Warn("source failed",
			applogger.String("source", desc.Name),
			applogger.String("identifier", id.String()),
			applogger.Error(err))
		return nil, &Attempt{Source: desc.Name, Reason: truncateReason(err.Error())}
	}

	if table.Empty() {
		if probe {
			breaker.OnCancel()
		} else {
			breaker.OnFailure()
		}
		o.metrics.RecordFetchAttempt(desc.Name, outcomeEmpty)
		return nil, &Attempt{Source: desc.Name, Reason: "no data"}
	}

	series, err := normalize.Series(table, o.normalizeOptions(desc, probe))
	if err != nil {
		// parsed but unusable: counts against the source like any
		// other failure, logged distinctly for diagnosability; probes
		// unwind the bracket instead
		if probe {
			breaker.OnCancel()
		} else {
			breaker.OnFailure()
		}
		o.metrics.RecordFetchAttempt(desc.Name, outcomeBadData)
		o.logger.Warn("source returned unusable data",
			applogger.String("source", desc.Name),
			applogger.String("identifier", id.String()),
			applogger.Error(err))
		return nil, &Attempt{Source: desc.Name, Reason: truncateReason(err.Error())}
	}

	breaker.OnSuccess()
	o.metrics.RecordFetchAttempt(desc.Name, outcomeSuccess)
	return series, nil
}

func (o *Orchestrator) normalizeOptions(desc source.Descriptor, probe bool) normalize.Options {
	var opts normalize.Options
	if desc.Spot {
		opts = normalize.SpotOptions()
	} else {
		opts = normalize.DefaultOptions()
	}
	if probe {
		// a 5-day probe window can never satisfy the historical floor
		opts.MinRows = normalize.DefaultMinRowsSpot
	}
	opts.Overrides = desc.Overrides
	return opts
}

func failure(sourceName string, elapsed time.Duration, msg string) models.FetchResult {
	return models.FetchResult{
		Success:      false,
		SourceName:   sourceName,
		Elapsed:      elapsed,
		ErrorMessage: msg,
	}
}
