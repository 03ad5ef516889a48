package source

import (
	"context"
	"fmt"
	"strings"

	"StockPulse/internal/domain/models"
	apphttp "StockPulse/pkg/http"
)

const tencentQuoteURL = "https://qt.gtimg.cn/"

// Positions inside the "~"-separated tencent quote payload.
const (
	tcFieldClose  = 3
	tcFieldOpen   = 5
	tcFieldVolume = 6
	tcFieldStamp  = 30
	tcFieldHigh   = 33
	tcFieldLow    = 34
	tcFieldAmount = 37
	tcFieldMin    = 38
)

// TencentSpot pulls the real-time quote line from qt.gtimg.cn and
// shapes it into a single-row table. It is a last-resort source: only
// today's snapshot, no history.
type TencentSpot struct {
	client  *apphttp.Client
	name    string
	baseURL string
	hk      bool
}

func NewTencentSpot(client *apphttp.Client) *TencentSpot {
	return &TencentSpot{client: client, name: "tencent_spot", baseURL: tencentQuoteURL}
}

func NewTencentSpotHK(client *apphttp.Client) *TencentSpot {
	return &TencentSpot{client: client, name: "tencent_spot_hk", baseURL: tencentQuoteURL, hk: true}
}

func (a *TencentSpot) Name() string { return a.name }

func (a *TencentSpot) Fetch(ctx context.Context, code, start, end string) (models.RawTable, error) {
	symbol := a.symbol(code)

	var raw []byte
	err := a.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method:      apphttp.MethodGet,
		URL:         a.baseURL,
		QueryParams: map[string][]string{"q": {symbol}},
	}, &raw)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("tencent quote %s: %w", symbol, err)
	}

	fields, err := parseTencentQuote(string(raw))
	if err != nil {
		return models.RawTable{}, fmt.Errorf("tencent quote %s: %w", symbol, err)
	}

	date := fields[tcFieldStamp]
	if len(date) >= 8 {
		date = date[:8]
	}

	tbl := models.RawTable{Columns: []string{"date", "open", "high", "low", "close", "volume", "amount"}}
	tbl.AppendRow(date,
		fields[tcFieldOpen], fields[tcFieldHigh], fields[tcFieldLow], fields[tcFieldClose],
		fields[tcFieldVolume], fields[tcFieldAmount])
	return tbl, nil
}

func (a *TencentSpot) symbol(code string) string {
	if a.hk {
		return "hk" + code
	}
	return sinaSymbol(code) // tencent shares the sh/sz prefix convention
}

// parseTencentQuote extracts the field list from a payload like
// v_sh600271="1~...~600271~12.34~...";
func parseTencentQuote(payload string) ([]string, error) {
	open := strings.Index(payload, `"`)
	close_ := strings.LastIndex(payload, `"`)
	if open < 0 || close_ <= open {
		return nil, Permanentf("malformed payload: %q", truncate(payload, 60))
	}
	fields := strings.Split(payload[open+1:close_], "~")
	if len(fields) <= tcFieldMin {
		return nil, Permanentf("quote has %d fields, want at least %d", len(fields), tcFieldMin+1)
	}
	return fields, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
