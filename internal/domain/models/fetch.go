package models

import (
	"fmt"
	"time"
)

// dateLayout is the canonical compact layout used in cache keys and
// upstream query parameters.
const dateLayout = "20060102"

// DateRange is an inclusive [Start, End] date window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DefaultDateRange returns [today-365d, today].
func DefaultDateRange(now time.Time) DateRange {
	return DateRange{Start: now.AddDate(0, 0, -365), End: now}
}

// Validate checks the start <= end invariant.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return fmt.Errorf("date range: start %s after end %s", r.StartKey(), r.EndKey())
	}
	return nil
}

// StartKey returns the start date in compact YYYYMMDD form.
func (r DateRange) StartKey() string { return r.Start.Format(dateLayout) }

// EndKey returns the end date in compact YYYYMMDD form.
func (r DateRange) EndKey() string { return r.End.Format(dateLayout) }

// IncludesToday reports whether the range extends through the current
// session. Such ranges get short cache TTLs since the last bar is live.
func (r DateRange) IncludesToday(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return !r.End.Before(today)
}

// FetchResult is the orchestrator's terminal output for one request.
type FetchResult struct {
	Success      bool          `json:"success"`
	Series       PriceSeries   `json:"series,omitempty"`
	SourceName   string        `json:"source_name"`
	Elapsed      time.Duration `json:"elapsed"`
	ErrorMessage string        `json:"error_message,omitempty"`
}
