package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Indicator keys. Moving averages use MAKey/EMAKey.
const (
	KeyRSI          = "rsi"
	KeyMACD         = "macd"
	KeyMACDSignal   = "macd_signal"
	KeyMACDHist     = "macd_hist"
	KeyMACDHistPrev = "macd_hist_prev"
	KeyK            = "k"
	KeyD            = "d"
	KeyJ            = "j"
	KeyBBUpper      = "bb_upper"
	KeyBBMiddle     = "bb_middle"
	KeyBBLower      = "bb_lower"
	KeyBBWidth      = "bb_width"
	KeyATR          = "atr"
	KeyATRPercent   = "atr_percent"
	KeyADX          = "adx"
	KeySAR          = "sar"
	KeyCCI          = "cci"
	KeyOBV          = "obv"
	KeyOBVChange    = "obv_change"
)

// MAKey returns the key of the simple moving average for period.
func MAKey(period int) string { return fmt.Sprintf("ma_%d", period) }

// EMAKey returns the key of the exponential moving average for period.
func EMAKey(period int) string { return fmt.Sprintf("ema_%d", period) }

// IndicatorSet maps indicator names to their latest value.
// A key is absent when the value could not be computed; it never holds NaN or Inf.
type IndicatorSet map[string]float64

// Set stores v under name unless v is not finite.
func (s IndicatorSet) Set(name string, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	s[name] = v
	return true
}

// Get returns the value for name and whether it is present.
func (s IndicatorSet) Get(name string) (float64, bool) {
	v, ok := s[name]
	return v, ok
}

// Has reports whether every name is present.
func (s IndicatorSet) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := s[n]; !ok {
			return false
		}
	}
	return true
}

// MACD returns line, signal and histogram when all three are present.
func (s IndicatorSet) MACD() (line, signal, hist float64, ok bool) {
	if !s.Has(KeyMACD, KeyMACDSignal, KeyMACDHist) {
		return 0, 0, 0, false
	}
	return s[KeyMACD], s[KeyMACDSignal], s[KeyMACDHist], true
}

// Bollinger returns the upper, middle and lower band when all three are present.
func (s IndicatorSet) Bollinger() (upper, middle, lower float64, ok bool) {
	if !s.Has(KeyBBUpper, KeyBBMiddle, KeyBBLower) {
		return 0, 0, 0, false
	}
	return s[KeyBBUpper], s[KeyBBMiddle], s[KeyBBLower], true
}

// SimpleMAs returns the values of every "ma_<period>" entry ordered by ascending period.
func (s IndicatorSet) SimpleMAs() []float64 {
	type entry struct {
		period int
		value  float64
	}
	var entries []entry
	for k, v := range s {
		if !strings.HasPrefix(k, "ma_") {
			continue
		}
		p, err := strconv.Atoi(strings.TrimPrefix(k, "ma_"))
		if err != nil {
			continue
		}
		entries = append(entries, entry{p, v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].period < entries[j].period })
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.value
	}
	return out
}
