package models

// AnalyzeRequest asks for a full indicator report on one security.
// MarketType is optional; when omitted the segment is detected from
// the code's shape.
type AnalyzeRequest struct {
	StockCode  string `json:"stock_code" validate:"required"`
	MarketType string `json:"market_type" validate:"omitempty,oneof=A HK US ETF LOF"`
}

// BarsRequest asks for the normalized bar series over a date window.
// Start and End use the compact YYYYMMDD form; both default to the
// trailing year when omitted.
type BarsRequest struct {
	Code    string `query:"code" validate:"required"`
	Segment string `query:"segment" validate:"omitempty,oneof=A HK US ETF LOF"`
	Start   string `query:"start" validate:"omitempty,len=8,numeric"`
	End     string `query:"end" validate:"omitempty,len=8,numeric"`
}

// BarsResponse carries the series with its provenance.
type BarsResponse struct {
	Identifier string      `json:"identifier"`
	Source     string      `json:"source"`
	Cached     bool        `json:"cached"`
	Rows       int         `json:"rows"`
	Bars       PriceSeries `json:"bars"`
}

// ConnectivityResponse reports per-segment smoke test results.
type ConnectivityResponse struct {
	Segments map[MarketSegment]bool `json:"segments"`
	Healthy  bool                   `json:"healthy"`
}
