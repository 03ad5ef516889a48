package normalize

import "strings"

// Canonical column names every normalized table conforms to.
const (
	ColDate   = "date"
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
	ColAmount = "amount"
)

// canonicalAliases is the single consolidated alias table. Upstream
// providers disagree on spelling, casing, and language; all known
// variants map here. Provider-specific quirks are expressed as explicit
// overrides layered on top (see Options.Overrides), never as a second
// copy of this table.
var canonicalAliases = map[string]string{
	// dates
	"date": ColDate, "日期": ColDate, "时间": ColDate, "day": ColDate,
	"timestamp": ColDate, "trade_date": ColDate,
	// open
	"open": ColOpen, "开盘": ColOpen, "开盘价": ColOpen, "今开": ColOpen,
	// high
	"high": ColHigh, "最高": ColHigh, "最高价": ColHigh,
	// low
	"low": ColLow, "最低": ColLow, "最低价": ColLow,
	// close
	"close": ColClose, "收盘": ColClose, "收盘价": ColClose, "最新价": ColClose,
	"current": ColClose,
	// volume
	"volume": ColVolume, "成交量": ColVolume, "vol": ColVolume,
	// amount
	"amount": ColAmount, "成交额": ColAmount, "成交金额": ColAmount,
	"turnover": ColAmount,
}

// CanonicalColumn resolves a provider column name to its canonical
// name. Matching is case-insensitive and whitespace-tolerant. The
// second return is false for columns with no canonical meaning (they
// are dropped during normalization).
func CanonicalColumn(name string, overrides map[string]string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if overrides != nil {
		if canon, ok := overrides[key]; ok {
			return canon, canon != ""
		}
	}
	canon, ok := canonicalAliases[key]
	return canon, ok
}
