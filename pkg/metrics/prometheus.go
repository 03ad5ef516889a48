package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchAttempts *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
	cacheLookups  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_fetch_attempts_total",
				Help: "Source fetch attempts by terminal outcome",
			},
			[]string{"source", "outcome"},
		),
		fetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpulse_fetch_duration_seconds",
				Help:    "End-to-end fetch duration per market segment",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"segment"},
		),
		breakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpulse_breaker_state",
				Help: "Circuit breaker state per source (0 closed, 1 half-open, 2 open)",
			},
			[]string{"source"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_cache_lookups_total",
				Help: "Series cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordFetchAttempt records one source attempt outcome.
func (r *Recorder) RecordFetchAttempt(source, outcome string) {
	r.fetchAttempts.WithLabelValues(source, outcome).Inc()
}

// RecordFetchDuration records a successful fetch duration.
func (r *Recorder) RecordFetchDuration(segment string, seconds float64) {
	r.fetchDuration.WithLabelValues(segment).Observe(seconds)
}

// RecordBreakerState records a breaker transition.
func (r *Recorder) RecordBreakerState(source, state string) {
	var v float64
	switch state {
	case "HALF_OPEN":
		v = 1
	case "OPEN":
		v = 2
	}
	r.breakerState.WithLabelValues(source).Set(v)
}

// RecordCacheLookup records a cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}
