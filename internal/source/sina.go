package source

import (
	"context"
	"fmt"
	"strings"

	"StockPulse/internal/domain/models"
	apphttp "StockPulse/pkg/http"
	"StockPulse/pkg/util"
)

const sinaKlineURL = "https://quotes.sina.cn/cn/api/json_v2.php/CN_MarketDataService.getKLineData"

type sinaBar struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

// SinaDaily fetches mainland daily candles from sina's kline service.
// The endpoint has no date filtering, so it asks for the maximum
// window and trims locally.
type SinaDaily struct {
	client  *apphttp.Client
	baseURL string
}

func NewSinaDaily(client *apphttp.Client) *SinaDaily {
	return &SinaDaily{client: client, baseURL: sinaKlineURL}
}

func (a *SinaDaily) Name() string { return "sina_daily" }

func (a *SinaDaily) Fetch(ctx context.Context, code, start, end string) (models.RawTable, error) {
	symbol := sinaSymbol(code)

	var bars []sinaBar
	err := a.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodGet,
		URL:    a.baseURL,
		QueryParams: map[string][]string{
			"symbol":  {symbol},
			"scale":   {"240"}, // daily bars
			"ma":      {"no"},
			"datalen": {"1023"},
		},
	}, &bars)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("sina kline %s: %w", symbol, err)
	}

	tbl := models.RawTable{Columns: []string{"date", "open", "high", "low", "close", "volume"}}
	for _, b := range bars {
		key := util.CompactDateKey(b.Day)
		if key < start || key > end {
			continue
		}
		tbl.AppendRow(b.Day, b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return tbl, nil
}

// sinaSymbol prefixes the exchange the way sina expects: Shanghai for
// 6/5/9 codes, Shenzhen otherwise.
func sinaSymbol(code string) string {
	if strings.HasPrefix(code, "6") || strings.HasPrefix(code, "5") || strings.HasPrefix(code, "9") {
		return "sh" + code
	}
	return "sz" + code
}
