package usecase

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
	"StockPulse/internal/fetch"
	"StockPulse/internal/indicator"
	"StockPulse/internal/market"
	"StockPulse/pkg/cache"
	applogger "StockPulse/pkg/logger"
)

// Series cache TTLs. A window ending before today is settled data and
// can live a full day; a window that includes today goes stale at the
// next quote.
const (
	historicalTTL = 24 * time.Hour
	liveTTL       = 60 * time.Second
)

// Fetch lock tuning. The ttl bounds how long a crashed holder can
// block others; waiters poll the cache until the holder publishes.
const (
	fetchLockTTL  = 30 * time.Second
	lockPollEvery = 50 * time.Millisecond
	lockWaitMax   = 5 * time.Second
)

// AnalysisReport is the full response for one analyzed security.
type AnalysisReport struct {
	Identifier  string               `json:"identifier"`
	Segment     models.MarketSegment `json:"segment"`
	Source      string               `json:"source"`
	Rows        int                  `json:"rows"`
	Cached      bool                 `json:"cached"`
	Elapsed     string               `json:"elapsed"`
	Indicators  indicator.Snapshot   `json:"indicators"`
	GeneratedAt time.Time            `json:"generated_at"`
}

type cachedSeries struct {
	Series models.PriceSeries `json:"series"`
	Source string             `json:"source"`
}

// Analysis coordinates identifier resolution, cached fetching and
// indicator evaluation.
type Analysis struct {
	orch    *fetch.Orchestrator
	cache   cache.Service
	metrics repository.Metrics
	logger  *applogger.Logger
	now     func() time.Time

	race        bool
	concurrency int
}

// AnalysisOption configures the Analysis service.
type AnalysisOption func(*Analysis)

// WithRacing switches fetches to concurrent mode with the given
// source cap.
func WithRacing(concurrency int) AnalysisOption {
	return func(a *Analysis) {
		a.race = true
		a.concurrency = concurrency
	}
}

// WithMetrics attaches an observability recorder.
func WithMetrics(m repository.Metrics) AnalysisOption {
	return func(a *Analysis) {
		if m != nil {
			a.metrics = m
		}
	}
}

// NewAnalysis creates the analysis service. store may be nil to
// disable series caching.
func NewAnalysis(orch *fetch.Orchestrator, store cache.Service, log *applogger.Logger, opts ...AnalysisOption) *Analysis {
	a := &Analysis{
		orch:    orch,
		cache:   store,
		metrics: repository.NopMetrics{},
		logger:  log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze resolves the identifier, fetches a trailing year of bars and
// evaluates the indicator set over them.
func (a *Analysis) Analyze(ctx context.Context, code string, segment models.MarketSegment) (*AnalysisReport, error) {
	started := time.Now()
	id, err := market.Resolve(code, segment)
	if err != nil {
		return nil, err
	}
	dr := models.DefaultDateRange(a.now())

	series, source, hit, err := a.Series(ctx, id, dr)
	if err != nil {
		return nil, err
	}

	snap, err := indicator.Compute(series)
	if err != nil {
		return nil, fmt.Errorf("indicators for %s: %w", id, err)
	}

	return &AnalysisReport{
		Identifier:  id.String(),
		Segment:     id.Segment,
		Source:      source,
		Rows:        series.Len(),
		Cached:      hit,
		Elapsed:     time.Since(started).String(),
		Indicators:  snap,
		GeneratedAt: a.now(),
	}, nil
}

// Series returns bars for the identifier and range, read through the
// cache. The boolean reports whether the cache served the series.
func (a *Analysis) Series(ctx context.Context, id models.SecurityIdentifier, dr models.DateRange) (models.PriceSeries, string, bool, error) {
	if err := dr.Validate(); err != nil {
		return nil, "", false, err
	}

	key := seriesKey(id, dr)
	if a.cache != nil {
		var hit cachedSeries
		if err := a.cache.Get(ctx, key, &hit); err == nil && len(hit.Series) > 0 {
			a.metrics.RecordCacheLookup(true)
			return hit.Series, hit.Source, true, nil
		}
		a.metrics.RecordCacheLookup(false)

		// collapse concurrent misses on the same window into one
		// upstream fetch
		lockKey := cache.GenerateKey("fetch", key)
		acquired, lockErr := a.cache.TryLock(ctx, lockKey, fetchLockTTL)
		switch {
		case lockErr != nil:
			a.logger.Warn("fetch lock unavailable",
				applogger.String("key", lockKey), applogger.Error(lockErr))
		case acquired:
			defer func() {
				if err := a.cache.Unlock(ctx, lockKey); err != nil {
					a.logger.Warn("fetch lock release failed",
						applogger.String("key", lockKey), applogger.Error(err))
				}
			}()
			// a previous holder may have published between our miss
			// and our claim
			if err := a.cache.Get(ctx, key, &hit); err == nil && len(hit.Series) > 0 {
				return hit.Series, hit.Source, true, nil
			}
		default:
			if series, src, ok := a.awaitSeries(ctx, key); ok {
				return series, src, true, nil
			}
			// the holder crashed or overran the wait budget; fetch anyway
		}
	}

	var res models.FetchResult
	if a.race {
		res = a.orch.FetchRacing(ctx, id, dr, a.concurrency)
	} else {
		res = a.orch.FetchSequential(ctx, id, dr)
	}
	if !res.Success {
		return nil, "", false, fmt.Errorf("fetch %s: %s", id, res.ErrorMessage)
	}

	if a.cache != nil {
		ttl := historicalTTL
		if dr.IncludesToday(a.now()) {
			ttl = liveTTL
		}
		if err := a.cache.Set(ctx, key, cachedSeries{Series: res.Series, Source: res.SourceName}, ttl); err != nil {
			a.logger.Warn("series cache write failed",
				applogger.String("key", key), applogger.Error(err))
		}
	}
	return res.Series, res.SourceName, false, nil
}

// awaitSeries polls the cache for a series another request is
// currently fetching. It gives up on context cancellation or after the
// wait budget.
func (a *Analysis) awaitSeries(ctx context.Context, key string) (models.PriceSeries, string, bool) {
	deadline := time.NewTimer(lockWaitMax)
	defer deadline.Stop()
	tick := time.NewTicker(lockPollEvery)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, "", false
		case <-deadline.C:
			return nil, "", false
		case <-tick.C:
			var hit cachedSeries
			if err := a.cache.Get(ctx, key, &hit); err == nil && len(hit.Series) > 0 {
				return hit.Series, hit.Source, true
			}
		}
	}
}

// Connectivity smoke-tests every configured segment.
func (a *Analysis) Connectivity(ctx context.Context) map[models.MarketSegment]bool {
	return a.orch.TestConnectivity(ctx, func(segment models.MarketSegment) (models.SecurityIdentifier, error) {
		return market.Resolve(market.SmokeTestCode(segment), segment)
	})
}

// Breakers exposes the per-source circuit breaker snapshots.
func (a *Analysis) Breakers() map[string]fetch.BreakerStats {
	return a.orch.BreakerStats()
}

func seriesKey(id models.SecurityIdentifier, dr models.DateRange) string {
	return cache.GenerateKeyWithParams("series", id.String(), dr.StartKey(), dr.EndKey())
}
