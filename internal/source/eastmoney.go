package source

import (
	"context"
	"fmt"
	"strings"

	"StockPulse/internal/domain/models"
	apphttp "StockPulse/pkg/http"
)

const eastmoneyKlineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"

// klineFields is the field order eastmoney packs into each kline row.
var klineColumns = []string{"date", "open", "close", "high", "low", "volume", "amount"}

type eastmoneyResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// EastmoneyKline fetches daily forward-adjusted candles from the
// eastmoney push2his endpoint. SecID maps a bare code to the exchange
// qualified identifier the endpoint expects ("1.600271", "116.00700").
type EastmoneyKline struct {
	client  *apphttp.Client
	name    string
	secID   func(code string) string
	baseURL string
}

func NewEastmoneyKline(client *apphttp.Client, name string, secID func(code string) string) *EastmoneyKline {
	return &EastmoneyKline{client: client, name: name, secID: secID, baseURL: eastmoneyKlineURL}
}

func (a *EastmoneyKline) Name() string { return a.name }

func (a *EastmoneyKline) Fetch(ctx context.Context, code, start, end string) (models.RawTable, error) {
	return fetchEastmoneyKlines(ctx, a.client, a.baseURL, a.secID(code), start, end)
}

func fetchEastmoneyKlines(ctx context.Context, client *apphttp.Client, baseURL, secID, start, end string) (models.RawTable, error) {
	var resp eastmoneyResponse
	err := client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodGet,
		URL:    baseURL,
		QueryParams: map[string][]string{
			"secid":   {secID},
			"klt":     {"101"}, // daily
			"fqt":     {"1"},   // forward adjusted
			"beg":     {start},
			"end":     {end},
			"fields1": {"f1,f2,f3,f4,f5,f6"},
			"fields2": {"f51,f52,f53,f54,f55,f56,f57"},
			"lmt":     {"10000"},
		},
	}, &resp)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("eastmoney kline %s: %w", secID, err)
	}
	if resp.Data == nil {
		return models.RawTable{}, nil
	}

	tbl := models.RawTable{Columns: klineColumns}
	for _, line := range resp.Data.Klines {
		fields := strings.Split(line, ",")
		if len(fields) < len(klineColumns) {
			continue
		}
		tbl.AppendRow(fields[:len(klineColumns)]...)
	}
	return tbl, nil
}

// DomesticSecID qualifies a 6-digit mainland code for eastmoney.
// Shanghai listings (6/5/9 prefixes) live on market 1, Shenzhen on 0.
func DomesticSecID(code string) string {
	if strings.HasPrefix(code, "6") || strings.HasPrefix(code, "5") || strings.HasPrefix(code, "9") {
		return "1." + code
	}
	return "0." + code
}

// HKSecID qualifies a zero-padded Hong Kong code (market 116).
func HKSecID(code string) string { return "116." + code }

// EastmoneyUSKline wraps the same kline endpoint for US tickers.
// Eastmoney shards US listings across market ids by exchange and the
// bare ticker does not say which one, so candidates are probed in
// order until one answers with data.
type EastmoneyUSKline struct {
	client  *apphttp.Client
	baseURL string
}

var usMarketIDs = []string{"105", "106", "107"} // NASDAQ, NYSE, AMEX

func NewEastmoneyUSKline(client *apphttp.Client) *EastmoneyUSKline {
	return &EastmoneyUSKline{client: client, baseURL: eastmoneyKlineURL}
}

func (a *EastmoneyUSKline) Name() string { return "eastmoney_us_kline" }

func (a *EastmoneyUSKline) Fetch(ctx context.Context, code, start, end string) (models.RawTable, error) {
	var lastErr error
	for _, market := range usMarketIDs {
		tbl, err := fetchEastmoneyKlines(ctx, a.client, a.baseURL, market+"."+code, start, end)
		if err != nil {
			lastErr = err
			continue
		}
		if !tbl.Empty() {
			return tbl, nil
		}
	}
	return models.RawTable{}, lastErr
}
