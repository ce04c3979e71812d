package model

import (
	"math"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Ticker is the spot-market snapshot attached to a futures series.
type Ticker struct {
	Last   float64
	Bid    float64
	Ask    float64
	Volume float64
}

// MarketSeries holds the bars of one (symbol, timeframe) pair plus contract context.
// Bars are chronological with no duplicate timestamps.
type MarketSeries struct {
	Symbol       string
	Timeframe    string
	Exchange     string
	Bars         []OHLCV
	FundingRate  float64
	OpenInterest float64
	Spot         *Ticker // nil when the spot ticker could not be fetched
	FetchedAt    time.Time
}

// Len returns the number of bars.
func (s *MarketSeries) Len() int { return len(s.Bars) }

// LastClose returns the close of the newest bar. ok is false for an empty series
// or a close that is not a usable price.
func (s *MarketSeries) LastClose() (price float64, ok bool) {
	if len(s.Bars) == 0 {
		return 0, false
	}
	c := s.Bars[len(s.Bars)-1].Close
	if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
		return 0, false
	}
	return c, true
}

// AsOf is the reference time of the series: FetchedAt if set, else the newest bar time.
func (s *MarketSeries) AsOf() time.Time {
	if !s.FetchedAt.IsZero() {
		return s.FetchedAt
	}
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Time
}

// Basis returns (lastClose-spot)/spot. ok is false without a spot price.
func (s *MarketSeries) Basis() (float64, bool) {
	last, ok := s.LastClose()
	if !ok || s.Spot == nil || s.Spot.Last <= 0 {
		return 0, false
	}
	return (last - s.Spot.Last) / s.Spot.Last, true
}

// Closes extracts the close column.
func (s *MarketSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column.
func (s *MarketSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column.
func (s *MarketSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts the volume column.
func (s *MarketSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}
