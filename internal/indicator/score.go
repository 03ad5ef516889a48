package indicator

import (
	"StockPulse/internal/domain/models"
)

// Default lookback windows.
const (
	shortMAPeriod  = 5
	mediumMAPeriod = 20
	longMAPeriod   = 60
	rsiPeriod      = 14
	bollPeriod     = 20
	bollStdDev     = 2.0
	atrPeriod      = 14
	volumeMAPeriod = 20
)

// Snapshot is the indicator set evaluated at the latest bar, plus a
// composite 0-100 score.
type Snapshot struct {
	Close       float64   `json:"close"`
	MA5         float64   `json:"ma5"`
	MA20        float64   `json:"ma20"`
	MA60        float64   `json:"ma60"`
	RSI         float64   `json:"rsi"`
	MACD        MACDValue `json:"macd"`
	Bollinger   Bands     `json:"bollinger"`
	ATR         float64   `json:"atr"`
	VolumeRatio float64   `json:"volume_ratio"`

	Score  int    `json:"score"`
	Rating string `json:"rating"`
}

// Compute evaluates the full indicator set over a normalized series.
// The series must cover at least the longest lookback window.
func Compute(series models.PriceSeries) (Snapshot, error) {
	if series.Len() < longMAPeriod+1 {
		return Snapshot{}, ErrInsufficientData
	}
	closes := series.Closes()

	var snap Snapshot
	var err error
	snap.Close = series.Last().Close

	if snap.MA5, err = SMA(closes, shortMAPeriod); err != nil {
		return Snapshot{}, err
	}
	if snap.MA20, err = SMA(closes, mediumMAPeriod); err != nil {
		return Snapshot{}, err
	}
	if snap.MA60, err = SMA(closes, longMAPeriod); err != nil {
		return Snapshot{}, err
	}
	if snap.RSI, err = RSI(closes, rsiPeriod); err != nil {
		return Snapshot{}, err
	}
	if snap.MACD, err = MACD(closes); err != nil {
		return Snapshot{}, err
	}
	if snap.Bollinger, err = Bollinger(closes, bollPeriod, bollStdDev); err != nil {
		return Snapshot{}, err
	}
	if snap.ATR, err = ATR(series, atrPeriod); err != nil {
		return Snapshot{}, err
	}
	snap.VolumeRatio = volumeRatio(series)

	snap.Score = score(snap)
	snap.Rating = rating(snap.Score)
	return snap, nil
}

// volumeRatio compares the latest volume to its trailing average.
// Zero when there is no volume history (spot-only or thin feeds).
func volumeRatio(series models.PriceSeries) float64 {
	if series.Len() < volumeMAPeriod+1 {
		return 0
	}
	sum := 0.0
	for i := series.Len() - volumeMAPeriod - 1; i < series.Len()-1; i++ {
		sum += series[i].Volume
	}
	avg := sum / volumeMAPeriod
	if avg <= 0 {
		return 0
	}
	return series.Last().Volume / avg
}

// score weighs trend, momentum, volume and volatility into 0-100:
// trend 25, RSI 20, MACD 15, volume 20, band position 10, ATR 10.
func score(s Snapshot) int {
	total := 0

	// trend: full bullish stack of the three averages
	switch {
	case s.MA5 > s.MA20 && s.MA20 > s.MA60:
		total += 25
	case s.MA5 > s.MA20:
		total += 12
	}

	// momentum: neutral RSI scores best, extremes are risk
	switch {
	case s.RSI >= 40 && s.RSI <= 60:
		total += 20
	case s.RSI >= 30 && s.RSI <= 70:
		total += 14
	case s.RSI < 30:
		total += 8 // oversold, rebound potential
	}

	if s.MACD.MACD > s.MACD.Signal && s.MACD.Histogram > 0 {
		total += 15
	}

	switch {
	case s.VolumeRatio > 2:
		total += 20
	case s.VolumeRatio > 1.5:
		total += 15
	case s.VolumeRatio > 1:
		total += 8
	}

	// band position: riding the upper half without piercing it
	switch {
	case s.Close > s.Bollinger.Middle && s.Close < s.Bollinger.Upper:
		total += 10
	case s.Close < s.Bollinger.Lower:
		total += 5 // stretched, mean reversion setups
	}

	// volatility: prefer calm regimes
	if s.Close > 0 {
		atrPct := s.ATR / s.Close
		switch {
		case atrPct < 0.02:
			total += 10
		case atrPct < 0.04:
			total += 5
		}
	}

	if total > 100 {
		total = 100
	}
	return total
}

func rating(score int) string {
	switch {
	case score >= 75:
		return "strong"
	case score >= 60:
		return "positive"
	case score >= 40:
		return "neutral"
	default:
		return "weak"
	}
}
