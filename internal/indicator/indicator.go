// Package indicator computes technical indicators over a normalized
// price series. All functions evaluate the latest value from daily
// closes; callers decide how much history to feed in.
package indicator

import (
	"errors"
	"math"

	"StockPulse/internal/domain/models"
)

var ErrInsufficientData = errors.New("not enough data for indicator calculation")

// SMA computes the simple moving average of the trailing period.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// EMA computes the exponentially weighted average over the whole
// series with alpha = 2/(period+1), seeded from the first value.
func EMA(values []float64, period int) (float64, error) {
	series, err := emaSeries(values, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

func emaSeries(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(values) == 0 {
		return nil, ErrInsufficientData
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}

// RSI computes the Wilder-smoothed relative strength index. Requires
// at least period+1 values.
func RSI(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period+1 {
		return 0, ErrInsufficientData
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// MACDValue holds the three MACD components at the latest bar.
type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD computes the 12/26 EMA difference with a 9-period signal line.
func MACD(values []float64) (MACDValue, error) {
	if len(values) < 26 {
		return MACDValue{}, ErrInsufficientData
	}
	fast, err := emaSeries(values, 12)
	if err != nil {
		return MACDValue{}, err
	}
	slow, err := emaSeries(values, 26)
	if err != nil {
		return MACDValue{}, err
	}
	line := make([]float64, len(values))
	for i := range values {
		line[i] = fast[i] - slow[i]
	}
	signal, err := emaSeries(line, 9)
	if err != nil {
		return MACDValue{}, err
	}
	last := len(values) - 1
	return MACDValue{
		MACD:      line[last],
		Signal:    signal[last],
		Histogram: line[last] - signal[last],
	}, nil
}

// Bands holds the Bollinger band levels at the latest bar.
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Bollinger computes bands over the trailing period with the given
// standard deviation multiplier.
func Bollinger(values []float64, period int, stdDev float64) (Bands, error) {
	middle, err := SMA(values, period)
	if err != nil {
		return Bands{}, err
	}
	variance := 0.0
	for i := len(values) - period; i < len(values); i++ {
		d := values[i] - middle
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))
	return Bands{
		Upper:  middle + stdDev*sd,
		Middle: middle,
		Lower:  middle - stdDev*sd,
	}, nil
}

// ATR computes the average true range over the trailing period, with
// the true range using the previous close.
func ATR(series models.PriceSeries, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if series.Len() < period+1 {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := series.Len() - period; i < series.Len(); i++ {
		bar := series[i]
		prevClose := series[i-1].Close
		tr := bar.High - bar.Low
		if d := math.Abs(bar.High - prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(bar.Low - prevClose); d > tr {
			tr = d
		}
		sum += tr
	}
	return sum / float64(period), nil
}
