package analyzer

import (
	"sentinel-signals/internal/model"
)

const minAnalysisBars = 20

// ClassifyStructure blends MA position, RSI, MACD and Bollinger position into a 0-100 strength.
// Weights: MA 0.4, RSI 0.2, MACD 0.2, BB 0.2.
func ClassifyStructure(series *model.MarketSeries, ind model.IndicatorSet) model.Structure {
	result := model.Structure{Label: model.StructureNeutral, Description: "数据不足，无法判断结构"}
	if series.Len() < minAnalysisBars {
		return result
	}
	price, ok := series.LastClose()
	if !ok {
		return result
	}

	strength := scoreMAPosition(price, ind)*0.4 +
		scoreRSIBucket(ind)*0.2 +
		scoreMACDRelation(ind)*0.2 +
		scoreBollingerPosition(price, ind)*0.2

	result.Strength = strength
	switch {
	case strength >= 70:
		result.Label = model.StructureBullish
		result.Description = "看涨结构，价格站在大多数均线上方"
	case strength <= 30:
		result.Label = model.StructureBearish
		result.Description = "看跌结构，价格站在大多数均线下方"
	default:
		result.Description = "中性结构，价格在均线附近波动"
	}
	return result
}

// scoreMAPosition is the share of simple MAs the price sits above, 0-100.
func scoreMAPosition(price float64, ind model.IndicatorSet) float64 {
	mas := ind.SimpleMAs()
	if len(mas) == 0 {
		return 0
	}
	above := 0
	for _, ma := range mas {
		if price > ma {
			above++
		}
	}
	return float64(above) / float64(len(mas)) * 100
}

// scoreRSIBucket is 0 without RSI.
func scoreRSIBucket(ind model.IndicatorSet) float64 {
	rsi, ok := ind.Get(model.KeyRSI)
	if !ok {
		return 0
	}
	switch {
	case rsi > 70:
		return 90
	case rsi > 60:
		return 70
	case rsi > 50:
		return 60
	case rsi > 40:
		return 40
	case rsi > 30:
		return 30
	default:
		return 10
	}
}

func scoreMACDRelation(ind model.IndicatorSet) float64 {
	line, signal, hist, ok := ind.MACD()
	if !ok {
		return 50
	}
	switch {
	case line > signal && hist > 0:
		return 80
	case line > signal && hist < 0:
		return 60
	case line < signal && hist < 0:
		return 20
	default:
		return 40
	}
}

func scoreBollingerPosition(price float64, ind model.IndicatorSet) float64 {
	upper, middle, lower, ok := ind.Bollinger()
	if !ok {
		return 50
	}
	switch {
	case price > upper:
		return 90
	case price > middle:
		return 70
	case price < lower:
		return 10
	case price < middle:
		return 30
	default:
		return 50
	}
}
