package usecase

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/fetch"
	"StockPulse/internal/source"
	"StockPulse/pkg/cache"
	applogger "StockPulse/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func trendTable(rows int) models.RawTable {
	tbl := models.RawTable{Columns: []string{"date", "open", "high", "low", "close", "volume"}}
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 10.0
	for i := 0; i < rows; i++ {
		d := day.AddDate(0, 0, i).Format("2006-01-02")
		c := price + float64(i)*0.05
		tbl.AppendRow(d, fmtF(c-0.1), fmtF(c+0.2), fmtF(c-0.2), fmtF(c), "10000")
	}
	return tbl
}

func fmtF(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func newTestAnalysis(t *testing.T, calls *int64, opts ...AnalysisOption) *Analysis {
	t.Helper()
	desc := source.Descriptor{
		Name: "mock", Priority: 1, MaxRetries: 1, MinInterval: time.Millisecond, Timeout: time.Second,
		Adapter: source.Func{AdapterName: "mock", FetchFunc: func(ctx context.Context, code, start, end string) (models.RawTable, error) {
			atomic.AddInt64(calls, 1)
			return trendTable(120), nil
		}},
	}
	reg, err := source.NewRegistry(map[models.MarketSegment][]source.Descriptor{
		models.EquityDomestic: {desc},
	})
	if err != nil {
		t.Fatal(err)
	}
	log := testLogger(t)
	orch := fetch.New(reg, fetch.NewBreakerSet(fetch.DefaultBreakerConfig(), nil, nil), log)
	return NewAnalysis(orch, cache.NewMemoryCache(), log, opts...)
}

// newSlowAnalysis mirrors newTestAnalysis but the adapter holds each
// fetch long enough for overlapping requests to contend for the fetch
// lock.
func newSlowAnalysis(t *testing.T, calls *int64, delay time.Duration) *Analysis {
	t.Helper()
	desc := source.Descriptor{
		Name: "mock", Priority: 1, MaxRetries: 1, MinInterval: time.Millisecond, Timeout: 10 * time.Second,
		Adapter: source.Func{AdapterName: "mock", FetchFunc: func(ctx context.Context, code, start, end string) (models.RawTable, error) {
			atomic.AddInt64(calls, 1)
			time.Sleep(delay)
			return trendTable(120), nil
		}},
	}
	reg, err := source.NewRegistry(map[models.MarketSegment][]source.Descriptor{
		models.EquityDomestic: {desc},
	})
	if err != nil {
		t.Fatal(err)
	}
	log := testLogger(t)
	orch := fetch.New(reg, fetch.NewBreakerSet(fetch.DefaultBreakerConfig(), nil, nil), log)
	return NewAnalysis(orch, cache.NewMemoryCache(), log)
}

func TestAnalyzeProducesReport(t *testing.T) {
	var calls int64
	a := newTestAnalysis(t, &calls)

	report, err := a.Analyze(context.Background(), "600271", models.EquityDomestic)
	if err != nil {
		t.Fatal(err)
	}
	if report.Identifier != "600271.A" {
		t.Errorf("identifier = %s", report.Identifier)
	}
	if report.Source != "mock" || report.Rows != 120 || report.Cached {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.Indicators.Score < 0 || report.Indicators.Score > 100 {
		t.Errorf("score out of range: %d", report.Indicators.Score)
	}
	if report.Indicators.MA5 <= 0 {
		t.Error("indicators not evaluated")
	}
}

func TestAnalyzeServesSecondCallFromCache(t *testing.T) {
	var calls int64
	a := newTestAnalysis(t, &calls)
	ctx := context.Background()

	if _, err := a.Analyze(ctx, "600271", models.EquityDomestic); err != nil {
		t.Fatal(err)
	}
	report, err := a.Analyze(ctx, "600271", models.EquityDomestic)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Cached {
		t.Error("second call should be served from cache")
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("adapter called %d times, want 1", got)
	}
}

func TestAnalyzeRejectsBadIdentifier(t *testing.T) {
	var calls int64
	a := newTestAnalysis(t, &calls)

	if _, err := a.Analyze(context.Background(), "12AB", models.EquityDomestic); err == nil {
		t.Fatal("malformed code must fail before any fetch")
	}
	if calls != 0 {
		t.Errorf("adapter called %d times", calls)
	}
}

func TestSeriesCacheTTLDependsOnRange(t *testing.T) {
	var calls int64
	a := newTestAnalysis(t, &calls)
	rec := &ttlRecorder{Service: cache.NewMemoryCache()}
	a.cache = rec
	ctx := context.Background()
	id := models.SecurityIdentifier{Code: "600271", Segment: models.EquityDomestic}

	now := time.Now()
	settled := models.DateRange{Start: now.AddDate(0, 0, -30), End: now.AddDate(0, 0, -2)}
	if _, _, _, err := a.Series(ctx, id, settled); err != nil {
		t.Fatal(err)
	}
	if rec.lastTTL != 24*time.Hour {
		t.Errorf("settled range TTL = %v", rec.lastTTL)
	}

	live := models.DateRange{Start: now.AddDate(0, 0, -30), End: now}
	if _, _, _, err := a.Series(ctx, id, live); err != nil {
		t.Fatal(err)
	}
	if rec.lastTTL != 60*time.Second {
		t.Errorf("live range TTL = %v", rec.lastTTL)
	}
}

func TestConcurrentSeriesFetchesCollapse(t *testing.T) {
	var calls int64
	a := newSlowAnalysis(t, &calls, 100*time.Millisecond)
	id := models.SecurityIdentifier{Code: "600271", Segment: models.EquityDomestic}
	now := time.Now()
	dr := models.DateRange{Start: now.AddDate(0, 0, -30), End: now.AddDate(0, 0, -2)}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, _, err := a.Series(context.Background(), id, dr); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("adapter called %d times for one window, want 1", got)
	}
}

func TestConnectivityUsesSmokeCodes(t *testing.T) {
	var calls int64
	a := newTestAnalysis(t, &calls)

	got := a.Connectivity(context.Background())
	if len(got) != 1 {
		t.Fatalf("got %v", got)
	}
	if !got[models.EquityDomestic] {
		t.Error("configured segment should probe fine")
	}
}

type ttlRecorder struct {
	cache.Service
	lastTTL time.Duration
}

func (r *ttlRecorder) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	r.lastTTL = expiration
	return r.Service.Set(ctx, key, value, expiration)
}
