package calculator

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"
)

var errNoValue = errors.New("no computable value")

// Library is the set of indicator primitives the builder consumes.
// Every function returns a series aligned with its input.
type Library interface {
	SMA(closes []float64, period int) []float64
	EMA(closes []float64, period int) []float64
	RSI(closes []float64, period int) []float64
	MACD(closes []float64, fast, slow, signal int) (macd, signalLine, hist []float64)
	Stoch(high, low, close []float64, kPeriod, dPeriod, jPeriod int) (k, d []float64)
	BBands(closes []float64, period int, stdDev float64) (upper, middle, lower []float64)
	ATR(high, low, close []float64, period int) []float64
	ADX(high, low, close []float64, period int) []float64
	CCI(high, low, close []float64, period int) []float64
	SAR(high, low []float64, acceleration, maximum float64) []float64
	OBV(closes, volumes []float64) []float64
}

// Talib implements Library with github.com/markcheno/go-talib.
type Talib struct{}

func (Talib) SMA(closes []float64, period int) []float64 { return talib.Sma(closes, period) }
func (Talib) EMA(closes []float64, period int) []float64 { return talib.Ema(closes, period) }
func (Talib) RSI(closes []float64, period int) []float64 { return talib.Rsi(closes, period) }

func (Talib) MACD(closes []float64, fast, slow, signal int) ([]float64, []float64, []float64) {
	return talib.Macd(closes, fast, slow, signal)
}

// Stoch is the slow stochastic: K smoothed over dPeriod, D over jPeriod.
func (Talib) Stoch(high, low, close []float64, kPeriod, dPeriod, jPeriod int) ([]float64, []float64) {
	return talib.Stoch(high, low, close, kPeriod, dPeriod, talib.SMA, jPeriod, talib.SMA)
}

func (Talib) BBands(closes []float64, period int, stdDev float64) ([]float64, []float64, []float64) {
	return talib.BBands(closes, period, stdDev, stdDev, talib.SMA)
}

func (Talib) ATR(high, low, close []float64, period int) []float64 {
	return talib.Atr(high, low, close, period)
}

func (Talib) ADX(high, low, close []float64, period int) []float64 {
	return talib.Adx(high, low, close, period)
}

func (Talib) CCI(high, low, close []float64, period int) []float64 {
	return talib.Cci(high, low, close, period)
}

func (Talib) SAR(high, low []float64, acceleration, maximum float64) []float64 {
	return talib.Sar(high, low, acceleration, maximum)
}

func (Talib) OBV(closes, volumes []float64) []float64 { return talib.Obv(closes, volumes) }

// lastValue returns the newest finite value of a primitive output.
func lastValue(xs []float64) (float64, error) {
	return valueAt(xs, 1)
}

// valueAt returns xs[len-back] when it is finite.
func valueAt(xs []float64, back int) (float64, error) {
	if back < 1 || len(xs) < back {
		return 0, errNoValue
	}
	v := xs[len(xs)-back]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNoValue
	}
	return v, nil
}
