package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"StockPulse/internal/domain/models"
	apphttp "StockPulse/pkg/http"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooChart fetches daily candles from yahoo's chart API. Symbol maps
// a bare code to yahoo's ticker form ("AAPL", "0700.HK").
type YahooChart struct {
	client  *apphttp.Client
	name    string
	symbol  func(code string) string
	baseURL string
}

func NewYahooChart(client *apphttp.Client, name string, symbol func(code string) string) *YahooChart {
	return &YahooChart{client: client, name: name, symbol: symbol, baseURL: yahooChartURL}
}

func (a *YahooChart) Name() string { return a.name }

func (a *YahooChart) Fetch(ctx context.Context, code, start, end string) (models.RawTable, error) {
	symbol := a.symbol(code)
	period1, period2, err := yahooPeriods(start, end)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	var resp yahooChartResponse
	err = a.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method:  apphttp.MethodGet,
		URL:     a.baseURL + symbol,
		Headers: map[string]string{"User-Agent": "Mozilla/5.0"},
		QueryParams: map[string][]string{
			"period1":  {strconv.FormatInt(period1, 10)},
			"period2":  {strconv.FormatInt(period2, 10)},
			"interval": {"1d"},
			"events":   {"history"},
		},
	}, &resp)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return models.RawTable{}, fmt.Errorf("yahoo chart %s: %s (%s)",
			symbol, resp.Chart.Error.Description, resp.Chart.Error.Code)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return models.RawTable{}, nil
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	tbl := models.RawTable{Columns: []string{"date", "open", "high", "low", "close", "volume"}}
	for i, ts := range result.Timestamp {
		tbl.AppendRow(
			time.Unix(ts, 0).UTC().Format("2006-01-02"),
			yahooCell(quote.Open, i),
			yahooCell(quote.High, i),
			yahooCell(quote.Low, i),
			yahooCell(quote.Close, i),
			yahooCell(quote.Volume, i),
		)
	}
	return tbl, nil
}

// USSymbol passes the ticker straight through.
func USSymbol(code string) string { return code }

// HKYahooSymbol renders a padded HK code in yahoo form: the local
// 5-digit zero padding drops to 4 digits plus the .HK suffix.
func HKYahooSymbol(code string) string {
	if len(code) == 5 && code[0] == '0' {
		code = code[1:]
	}
	return code + ".HK"
}

func yahooPeriods(start, end string) (int64, int64, error) {
	const layout = "20060102"
	from, err := time.Parse(layout, start)
	if err != nil {
		return 0, 0, Permanentf("bad start %q: %v", start, err)
	}
	to, err := time.Parse(layout, end)
	if err != nil {
		return 0, 0, Permanentf("bad end %q: %v", end, err)
	}
	// end is inclusive; chart periods are half-open
	return from.Unix(), to.AddDate(0, 0, 1).Unix(), nil
}

func yahooCell(vals []*float64, i int) string {
	if i >= len(vals) || vals[i] == nil {
		return ""
	}
	return strconv.FormatFloat(*vals[i], 'f', -1, 64)
}
