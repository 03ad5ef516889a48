package models

import (
	"time"
)

// PriceBar is one canonical OHLCV row. Amount is optional and zero when
// the upstream does not report turnover.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount,omitempty"`
}

// PriceSeries is an ascending-by-date, de-duplicated sequence of bars.
// The fetch layer never mutates a series after validation; downstream
// consumers work on copies or derived values.
type PriceSeries []PriceBar

func (s PriceSeries) Len() int { return len(s) }

// First returns the earliest bar. Callers must check Len first.
func (s PriceSeries) First() PriceBar { return s[0] }

// Last returns the most recent bar. Callers must check Len first.
func (s PriceSeries) Last() PriceBar { return s[len(s)-1] }

// Closes returns the close column as a slice.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// RawTable is the loosely-structured output of a source adapter:
// provider-specific column names over string cells. Normalization into
// PriceSeries happens in the normalize package, never in adapters.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table carries no rows. Adapters return an
// empty table for "no data" rather than an error.
func (t RawTable) Empty() bool { return len(t.Rows) == 0 }

// NumRows returns the row count.
func (t RawTable) NumRows() int { return len(t.Rows) }

// ColumnIndex returns the position of a named column, or -1.
func (t RawTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow adds one row. Short rows are padded so every row matches
// the column count.
func (t *RawTable) AppendRow(cells ...string) {
	for len(cells) < len(t.Columns) {
		cells = append(cells, "")
	}
	t.Rows = append(t.Rows, cells)
}
