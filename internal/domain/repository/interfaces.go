package repository

// Metrics abstracts the observability recorder so core packages do not
// depend on Prometheus directly.
type Metrics interface {
	RecordFetchAttempt(source, outcome string)
	RecordFetchDuration(segment string, seconds float64)
	RecordBreakerState(source, state string)
	RecordCacheLookup(hit bool)
}

// NopMetrics discards all observations; used in tests and when
// metrics are disabled.
type NopMetrics struct{}

func (NopMetrics) RecordFetchAttempt(string, string)  {}
func (NopMetrics) RecordFetchDuration(string, float64) {}
func (NopMetrics) RecordBreakerState(string, string)  {}
func (NopMetrics) RecordCacheLookup(bool)             {}
