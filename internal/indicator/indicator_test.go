package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func almost(t *testing.T, got, want, eps float64, name string) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestSMA(t *testing.T) {
	got, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatal(err)
	}
	almost(t, got, 4, 1e-9, "SMA")

	if _, err := SMA([]float64{1, 2}, 3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("want ErrInsufficientData, got %v", err)
	}
	if _, err := SMA([]float64{1}, 0); err == nil {
		t.Error("zero period must fail")
	}
}

func TestEMAConstantSeries(t *testing.T) {
	vals := make([]float64, 50)
	for i := range vals {
		vals[i] = 7.5
	}
	got, err := EMA(vals, 12)
	if err != nil {
		t.Fatal(err)
	}
	almost(t, got, 7.5, 1e-9, "EMA")
}

func TestEMAWeightsRecent(t *testing.T) {
	// a step up must pull the EMA above the old level but below the
	// new one
	vals := append(make([]float64, 0, 40), repeat(10, 20)...)
	vals = append(vals, repeat(20, 20)...)
	got, err := EMA(vals, 12)
	if err != nil {
		t.Fatal(err)
	}
	if got <= 10 || got >= 20 {
		t.Fatalf("EMA = %v, want between 10 and 20", got)
	}
	if got < 15 {
		t.Fatalf("EMA = %v, should lean toward the recent level", got)
	}
}

func TestRSIBounds(t *testing.T) {
	up := make([]float64, 30)
	for i := range up {
		up[i] = float64(i + 1)
	}
	got, err := RSI(up, 14)
	if err != nil {
		t.Fatal(err)
	}
	almost(t, got, 100, 1e-9, "RSI all gains")

	down := make([]float64, 30)
	for i := range down {
		down[i] = float64(100 - i)
	}
	got, err = RSI(down, 14)
	if err != nil {
		t.Fatal(err)
	}
	almost(t, got, 0, 1e-9, "RSI all losses")

	if _, err := RSI(up[:10], 14); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("want ErrInsufficientData, got %v", err)
	}
}

func TestMACDFlatSeriesIsZero(t *testing.T) {
	got, err := MACD(repeat(50, 60))
	if err != nil {
		t.Fatal(err)
	}
	almost(t, got.MACD, 0, 1e-9, "MACD")
	almost(t, got.Signal, 0, 1e-9, "Signal")
	almost(t, got.Histogram, 0, 1e-9, "Histogram")
}

func TestMACDUptrendPositive(t *testing.T) {
	vals := make([]float64, 60)
	for i := range vals {
		vals[i] = 10 + float64(i)*0.5
	}
	got, err := MACD(vals)
	if err != nil {
		t.Fatal(err)
	}
	if got.MACD <= 0 {
		t.Fatalf("MACD = %v, want positive in a steady uptrend", got.MACD)
	}
}

func TestBollingerSymmetry(t *testing.T) {
	vals := []float64{10, 12, 14, 12, 10, 12, 14, 12, 10, 12, 14, 12, 10, 12, 14, 12, 10, 12, 14, 12}
	got, err := Bollinger(vals, 20, 2)
	if err != nil {
		t.Fatal(err)
	}
	almost(t, got.Upper-got.Middle, got.Middle-got.Lower, 1e-9, "band symmetry")
	if got.Upper <= got.Middle {
		t.Fatal("upper band must sit above the middle")
	}
	almost(t, got.Middle, 12, 1e-9, "middle")
}

func makeSeries(n int, close func(i int) float64) models.PriceSeries {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make(models.PriceSeries, n)
	for i := range out {
		c := close(i)
		out[i] = models.PriceBar{
			Date: day.AddDate(0, 0, i),
			Open: c, High: c + 1, Low: c - 1, Close: c,
			Volume: 1000,
		}
	}
	return out
}

func TestATRConstantRange(t *testing.T) {
	// every bar spans exactly 2 with no gaps, so ATR is 2
	s := makeSeries(30, func(i int) float64 { return 50 })
	got, err := ATR(s, 14)
	if err != nil {
		t.Fatal(err)
	}
	almost(t, got, 2, 1e-9, "ATR")
}

func TestATRGapsCount(t *testing.T) {
	// a large overnight gap must widen the true range
	s := makeSeries(30, func(i int) float64 {
		if i == 28 {
			return 80
		}
		return 50
	})
	got, err := ATR(s, 14)
	if err != nil {
		t.Fatal(err)
	}
	if got <= 2 {
		t.Fatalf("ATR = %v, gap should raise it above the bar range", got)
	}
}

func TestComputeRequiresHistory(t *testing.T) {
	s := makeSeries(30, func(i int) float64 { return 50 })
	if _, err := Compute(s); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("want ErrInsufficientData, got %v", err)
	}
}

func TestComputeUptrendScoresHigh(t *testing.T) {
	s := makeSeries(120, func(i int) float64 { return 10 + float64(i)*0.1 })
	// volume surge on the last bar
	s[len(s)-1].Volume = 5000

	snap, err := Compute(s)
	if err != nil {
		t.Fatal(err)
	}
	if snap.MA5 <= snap.MA20 || snap.MA20 <= snap.MA60 {
		t.Fatal("uptrend must stack the averages")
	}
	if snap.Score < 50 {
		t.Fatalf("score = %d, uptrend with volume should score high", snap.Score)
	}
	if snap.Rating == "weak" {
		t.Fatalf("rating = %s", snap.Rating)
	}
}

func TestComputeDowntrendScoresLow(t *testing.T) {
	s := makeSeries(120, func(i int) float64 { return 100 - float64(i)*0.5 })
	snap, err := Compute(s)
	if err != nil {
		t.Fatal(err)
	}
	up, err2 := Compute(makeSeries(120, func(i int) float64 { return 10 + float64(i)*0.1 }))
	if err2 != nil {
		t.Fatal(err2)
	}
	if snap.Score >= up.Score {
		t.Fatalf("downtrend score %d should trail uptrend score %d", snap.Score, up.Score)
	}
}

func TestScoreBounded(t *testing.T) {
	for _, n := range []int{61, 120, 500} {
		s := makeSeries(n, func(i int) float64 { return 10 + math.Sin(float64(i))*2 + float64(i)*0.01 })
		snap, err := Compute(s)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Score < 0 || snap.Score > 100 {
			t.Fatalf("score %d out of range", snap.Score)
		}
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
