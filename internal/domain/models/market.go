package models

// MarketSegment identifies the market category a security trades in.
// The segment governs identifier format rules and which upstream
// sources are consulted.
type MarketSegment string

const (
	EquityDomestic MarketSegment = "A"
	EquityHK       MarketSegment = "HK"
	EquityUS       MarketSegment = "US"
	FundETF        MarketSegment = "ETF"
	FundLOF        MarketSegment = "LOF"
)

// AllSegments returns every supported segment in a stable order.
func AllSegments() []MarketSegment {
	return []MarketSegment{EquityDomestic, EquityHK, EquityUS, FundETF, FundLOF}
}

// Valid reports whether the segment is one of the supported values.
func (m MarketSegment) Valid() bool {
	switch m {
	case EquityDomestic, EquityHK, EquityUS, FundETF, FundLOF:
		return true
	}
	return false
}

func (m MarketSegment) String() string { return string(m) }

// SecurityIdentifier is a normalized security code bound to its segment.
// Construction goes through market.Resolve so an identifier in hand is
// always formatted and pattern-validated.
type SecurityIdentifier struct {
	Code    string        `json:"code"`
	Segment MarketSegment `json:"segment"`
}

func (s SecurityIdentifier) String() string {
	return s.Code + "." + string(s.Segment)
}
