package source

import (
	"time"

	"StockPulse/internal/domain/models"
	apphttp "StockPulse/pkg/http"
)

// Override adjusts a named descriptor at catalog build time. Zero
// fields keep the built-in value; Disabled removes the source from
// every segment that lists it.
type Override struct {
	Priority    int
	MinInterval time.Duration
	MaxRetries  int
	Timeout     time.Duration
	Disabled    bool
}

// BuildRegistry assembles the production source catalog. Priorities
// and pacing follow operational experience with each upstream:
// eastmoney is the most complete feed but the strictest about request
// cadence, sina tolerates faster polling, spot quotes are last-resort
// single-row fallbacks.
func BuildRegistry(client *apphttp.Client, overrides map[string]Override) (*Registry, error) {
	catalog := map[models.MarketSegment][]Descriptor{
		models.EquityDomestic: {
			{
				Name:        "eastmoney_kline",
				Priority:    1,
				MinInterval: 600 * time.Millisecond,
				MaxRetries:  4,
				Timeout:     30 * time.Second,
				Adapter:     NewEastmoneyKline(client, "eastmoney_kline", DomesticSecID),
			},
			{
				Name:        "tencent_spot",
				Priority:    2,
				MinInterval: 500 * time.Millisecond,
				MaxRetries:  3,
				Timeout:     15 * time.Second,
				Spot:        true,
				Adapter:     NewTencentSpot(client),
			},
			{
				Name:        "sina_daily",
				Priority:    3,
				MinInterval: 400 * time.Millisecond,
				MaxRetries:  3,
				Timeout:     30 * time.Second,
				Adapter:     NewSinaDaily(client),
			},
		},
		models.EquityHK: {
			{
				Name:        "eastmoney_hk_kline",
				Priority:    1,
				MinInterval: 500 * time.Millisecond,
				MaxRetries:  3,
				Timeout:     30 * time.Second,
				Adapter:     NewEastmoneyKline(client, "eastmoney_hk_kline", HKSecID),
			},
			{
				Name:        "yahoo_hk_chart",
				Priority:    2,
				MinInterval: 400 * time.Millisecond,
				MaxRetries:  3,
				Timeout:     30 * time.Second,
				Adapter:     NewYahooChart(client, "yahoo_hk_chart", HKYahooSymbol),
			},
			{
				Name:        "tencent_spot_hk",
				Priority:    3,
				MinInterval: 300 * time.Millisecond,
				MaxRetries:  2,
				Timeout:     15 * time.Second,
				Spot:        true,
				Adapter:     NewTencentSpotHK(client),
			},
		},
		models.EquityUS: {
			{
				Name:        "yahoo_chart",
				Priority:    1,
				MinInterval: 400 * time.Millisecond,
				MaxRetries:  3,
				Timeout:     30 * time.Second,
				Adapter:     NewYahooChart(client, "yahoo_chart", USSymbol),
			},
			{
				Name:        "eastmoney_us_kline",
				Priority:    2,
				MinInterval: 400 * time.Millisecond,
				MaxRetries:  3,
				Timeout:     30 * time.Second,
				Adapter:     NewEastmoneyUSKline(client),
			},
		},
		models.FundETF: {
			{
				Name:        "eastmoney_fund_kline",
				Priority:    1,
				MinInterval: 500 * time.Millisecond,
				MaxRetries:  3,
				Timeout:     30 * time.Second,
				Adapter:     NewEastmoneyKline(client, "eastmoney_fund_kline", DomesticSecID),
			},
			{
				Name:        "eastmoney_kline",
				Priority:    2,
				MinInterval: 600 * time.Millisecond,
				MaxRetries:  4,
				Timeout:     30 * time.Second,
				Adapter:     NewEastmoneyKline(client, "eastmoney_kline", DomesticSecID),
			},
		},
		models.FundLOF: {
			{
				Name:        "eastmoney_lof_kline",
				Priority:    1,
				MinInterval: 500 * time.Millisecond,
				MaxRetries:  3,
				Timeout:     30 * time.Second,
				Adapter:     NewEastmoneyKline(client, "eastmoney_lof_kline", DomesticSecID),
			},
			{
				Name:        "sina_daily",
				Priority:    2,
				MinInterval: 400 * time.Millisecond,
				MaxRetries:  3,
				Timeout:     30 * time.Second,
				Adapter:     NewSinaDaily(client),
			},
		},
	}

	for segment, list := range catalog {
		kept := list[:0]
		for _, d := range list {
			o, ok := overrides[d.Name]
			if !ok {
				kept = append(kept, d)
				continue
			}
			if o.Disabled {
				continue
			}
			if o.Priority > 0 {
				d.Priority = o.Priority
			}
			if o.MinInterval > 0 {
				d.MinInterval = o.MinInterval
			}
			if o.MaxRetries > 0 {
				d.MaxRetries = o.MaxRetries
			}
			if o.Timeout > 0 {
				d.Timeout = o.Timeout
			}
			kept = append(kept, d)
		}
		catalog[segment] = kept
	}

	return NewRegistry(catalog)
}
