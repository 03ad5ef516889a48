// Package normalize reshapes heterogeneous adapter output into the
// canonical price series and rejects bad data before it reaches
// callers.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
)

// Default minimum-row floors. Near-empty results from broken endpoints
// are worse than no result: they would silently produce nonsensical
// indicators downstream.
const (
	DefaultMinRowsHistorical = 10
	DefaultMinRowsSpot       = 1
)

// QualityError reports a table that parsed but failed the data-quality
// contract (missing columns, below the row floor).
type QualityError struct {
	Reason string
	Rows   int
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("data quality: %s (rows=%d)", e.Reason, e.Rows)
}

// Options tunes one normalization pass.
type Options struct {
	// MinRows is the row floor after filtering; results below it are
	// rejected with a QualityError.
	MinRows int
	// Overrides maps lowercased provider column names to canonical
	// names, layered over the shared alias table. Mapping to "" drops
	// a column that would otherwise alias.
	Overrides map[string]string
	// RequirePositiveClose drops rows with close <= 0. On by default
	// via DefaultOptions; equity and fund prices are always positive.
	RequirePositiveClose bool
}

// DefaultOptions returns the standard historical-range options.
func DefaultOptions() Options {
	return Options{MinRows: DefaultMinRowsHistorical, RequirePositiveClose: true}
}

// SpotOptions returns options for single-day spot-converted tables.
func SpotOptions() Options {
	return Options{MinRows: DefaultMinRowsSpot, RequirePositiveClose: true}
}

// Series converts a raw adapter table into a validated PriceSeries:
// alias reconciliation, type coercion, row filtering, ascending sort,
// same-date dedupe keeping the last occurrence, then the row floor.
// It returns either a fully valid series or an error, never a partial
// table.
func Series(table models.RawTable, opts Options) (models.PriceSeries, error) {
	if opts.MinRows <= 0 {
		opts.MinRows = DefaultMinRowsHistorical
	}
	if table.Empty() {
		return nil, &QualityError{Reason: "empty table"}
	}

	cols := columnPlan(table.Columns, opts.Overrides)
	if cols[ColDate] < 0 || cols[ColClose] < 0 {
		return nil, &QualityError{Reason: "missing date or close column", Rows: table.NumRows()}
	}

	series := make(models.PriceSeries, 0, table.NumRows())
	for _, row := range table.Rows {
		bar, ok := parseRow(row, cols, opts)
		if !ok {
			continue
		}
		series = append(series, bar)
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	series = dedupeKeepLast(series)

	if len(series) < opts.MinRows {
		return nil, &QualityError{
			Reason: fmt.Sprintf("row count below floor %d", opts.MinRows),
			Rows:   len(series),
		}
	}
	return series, nil
}

// columnPlan maps canonical names to source column indexes. When two
// source columns alias to the same canonical column the first wins.
func columnPlan(columns []string, overrides map[string]string) map[string]int {
	plan := map[string]int{
		ColDate: -1, ColOpen: -1, ColHigh: -1, ColLow: -1,
		ColClose: -1, ColVolume: -1, ColAmount: -1,
	}
	for i, name := range columns {
		canon, ok := CanonicalColumn(name, overrides)
		if !ok {
			continue
		}
		if plan[canon] < 0 {
			plan[canon] = i
		}
	}
	return plan
}

func parseRow(row []string, cols map[string]int, opts Options) (models.PriceBar, bool) {
	date, ok := parseDate(cell(row, cols[ColDate]))
	if !ok {
		return models.PriceBar{}, false
	}
	closePrice, ok := parseNumber(cell(row, cols[ColClose]))
	if !ok {
		return models.PriceBar{}, false
	}
	if opts.RequirePositiveClose && closePrice <= 0 {
		return models.PriceBar{}, false
	}

	bar := models.PriceBar{Date: date, Close: closePrice}
	bar.Open = numberOr(cell(row, cols[ColOpen]), closePrice)
	bar.High = numberOr(cell(row, cols[ColHigh]), closePrice)
	bar.Low = numberOr(cell(row, cols[ColLow]), closePrice)
	bar.Volume = numberOr(cell(row, cols[ColVolume]), 0)
	bar.Amount = numberOr(cell(row, cols[ColAmount]), 0)

	for _, v := range []float64{bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.Amount} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.PriceBar{}, false
		}
	}
	return bar, true
}

func dedupeKeepLast(series models.PriceSeries) models.PriceSeries {
	if len(series) < 2 {
		return series
	}
	// later entries in the same batch are corrections
	out := series[:0]
	for i, bar := range series {
		if i+1 < len(series) && sameDay(series[i+1].Date, bar.Date) {
			continue
		}
		out = append(out, bar)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

var dateLayouts = []string{
	"2006-01-02", "20060102", "2006/01/02",
	"2006-01-02 15:04:05", time.RFC3339,
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumber coerces a cell into a float. Thousands separators and
// surrounding whitespace are tolerated; unparsable cells report false
// ("missing") instead of failing the row outright.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" || strings.EqualFold(s, "nan") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func numberOr(s string, fallback float64) float64 {
	if v, ok := parseNumber(s); ok {
		return v
	}
	return fallback
}
