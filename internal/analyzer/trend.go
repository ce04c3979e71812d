package analyzer

import (
	"math"

	"sentinel-signals/internal/model"
)

// trendMAPeriods are the moving averages checked for stacking, shortest first.
var trendMAPeriods = []int{5, 10, 20, 50, 100}

// minStackedMAs is how many MAs must be present before stacking is checked.
const minStackedMAs = 3

// strongADX separates strong from moderate trends in the description.
const strongADX = 25

// DetermineTrend classifies the trend from MA stacking, price against MA50/MA100, and ADX.
//
// Stacking is bullish when every shorter MA is >= the next longer one and bearish when
// every shorter MA is <= the next longer one. With fewer than three MAs both hold.
// A directional trend needs both MA50 and MA100, with price strictly beyond each.
func DetermineTrend(series *model.MarketSeries, ind model.IndicatorSet) model.Trend {
	result := model.Trend{Direction: model.TrendSideways, Description: "数据不足，无法判断趋势"}
	if series.Len() < minAnalysisBars {
		return result
	}
	price, ok := series.LastClose()
	if !ok {
		return result
	}

	alignedUp, alignedDown := maStacking(ind)

	ma50, has50 := ind.Get(model.MAKey(50))
	ma100, has100 := ind.Get(model.MAKey(100))
	above50 := has50 && price > ma50
	above100 := has100 && price > ma100
	below50 := has50 && price < ma50
	below100 := has100 && price < ma100

	adx, _ := ind.Get(model.KeyADX)

	switch {
	case alignedUp && above50 && above100:
		result.Direction = model.TrendUp
		result.Strength = math.Min(100, 50+adx/2)
		if adx > strongADX {
			result.Description = "强劲上升趋势，均线多头排列"
		} else {
			result.Description = "温和上升趋势，均线多头排列"
		}
	case alignedDown && below50 && below100:
		result.Direction = model.TrendDown
		result.Strength = math.Min(100, 50+adx/2)
		if adx > strongADX {
			result.Description = "强劲下降趋势，均线空头排列"
		} else {
			result.Description = "温和下降趋势，均线空头排列"
		}
	default:
		result.Strength = math.Max(0, adx-15)
		result.Description = "横盘整理，无明确趋势"
	}
	return result
}

// maStacking reports bullish and bearish stacking of the available trend MAs.
func maStacking(ind model.IndicatorSet) (up, down bool) {
	values := make([]float64, 0, len(trendMAPeriods))
	for _, p := range trendMAPeriods {
		if v, ok := ind.Get(model.MAKey(p)); ok {
			values = append(values, v)
		}
	}
	up, down = true, true
	if len(values) < minStackedMAs {
		return up, down
	}
	for i := 0; i < len(values)-1; i++ {
		if values[i] < values[i+1] {
			up = false
		}
		if values[i] > values[i+1] {
			down = false
		}
	}
	return up, down
}
