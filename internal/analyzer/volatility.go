package analyzer

import (
	"math"

	"sentinel-signals/internal/model"
)

const volatilityWindow = 20

var annualize = math.Sqrt(365)

// AnalyzeVolatility compares the annualized volatility of the latest 20 close-to-close
// returns with the mean over every rolling 20-return window. With fewer than 20
// returns the whole sample is used and the average equals the current value.
func AnalyzeVolatility(series *model.MarketSeries) model.Volatility {
	result := model.Volatility{State: model.VolatilityNormal, Description: "数据不足，无法分析波动率"}
	if series.Len() < minAnalysisBars {
		return result
	}

	returns := simpleReturns(series.Closes())
	recent := returns
	if len(recent) > volatilityWindow {
		recent = recent[len(recent)-volatilityWindow:]
	}
	result.Current = sampleStd(recent) * annualize

	var sum float64
	windows := 0
	for end := volatilityWindow; end <= len(returns); end++ {
		sum += sampleStd(returns[end-volatilityWindow : end])
		windows++
	}
	if windows == 0 {
		result.Average = result.Current
	} else {
		result.Average = sum / float64(windows) * annualize
	}

	switch {
	case result.Current > result.Average*1.5:
		result.State = model.VolatilityHigh
		result.Description = "高波动性，市场剧烈震荡"
	case result.Current < result.Average*0.5:
		result.State = model.VolatilityLow
		result.Description = "低波动性，市场平静"
	default:
		result.Description = "正常波动，市场稳定"
	}
	return result
}

// simpleReturns skips steps whose previous close is zero.
func simpleReturns(closes []float64) []float64 {
	out := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out = append(out, (closes[i]-closes[i-1])/closes[i-1])
	}
	return out
}

// sampleStd is the n-1 standard deviation; 0 for fewer than two samples.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
