package analyzer

import (
	"fmt"
	"math"
	"strings"

	"sentinel-signals/internal/model"
)

// Funding rates beyond this magnitude mark one side as paying.
const fundingImpactThreshold = 0.0001

// AnalyzeSentiment scores sentiment from RSI, MACD histogram, KDJ and the funding rate.
// The base score is 50 and every missing input contributes nothing. The score is
// clamped to [0, 100] before the long/short ratio and label are derived.
func AnalyzeSentiment(series *model.MarketSeries, ind model.IndicatorSet) model.Sentiment {
	result := model.Sentiment{
		Overall:        model.StructureNeutral,
		Score:          50,
		LongShortRatio: 1.0,
		State:          model.StateNormal,
		FundingImpact:  model.FundingNeutral,
	}

	funding := series.FundingRate
	if math.IsNaN(funding) || math.IsInf(funding, 0) {
		funding = 0
	}
	switch {
	case funding > fundingImpactThreshold:
		result.FundingImpact = model.FundingLongPay
	case funding < -fundingImpactThreshold:
		result.FundingImpact = model.FundingShortPay
	}

	score := 50.0
	if rsi, ok := ind.Get(model.KeyRSI); ok {
		switch {
		case rsi > 70:
			result.State = model.StateOverbought
		case rsi < 30:
			result.State = model.StateOversold
		}
		score += (rsi - 50) * 0.5
	}

	if hist, ok := ind.Get(model.KeyMACDHist); ok {
		if hist > 0 {
			score += 10 * math.Min(1, hist/0.01)
		} else {
			score -= 10 * math.Min(1, math.Abs(hist)/0.01)
		}
	}

	if ind.Has(model.KeyK, model.KeyD) {
		k, d := ind[model.KeyK], ind[model.KeyD]
		switch {
		case k > d:
			score += 5
		case k < d:
			score -= 5
		}
		switch {
		case k > 80:
			score += 5
		case k < 20:
			score -= 5
		}
	}

	// Positive funding: longs pay shorts, which weighs on bullish sentiment.
	score -= funding * 1000
	score = math.Max(0, math.Min(100, score))
	result.Score = score

	ratio := 1.0
	switch {
	case score > 50:
		ratio = 1.0 + (score-50)/10
	case score < 50:
		ratio = 1.0 / (1.0 + (50-score)/10)
	}
	result.LongShortRatio = math.Round(ratio*100) / 100

	switch {
	case score >= 70:
		result.Overall = model.StructureBullish
	case score <= 30:
		result.Overall = model.StructureBearish
	}
	result.Description = describeSentiment(result)
	return result
}

func describeSentiment(s model.Sentiment) string {
	parts := make([]string, 0, 3)
	switch s.Overall {
	case model.StructureBullish:
		parts = append(parts, "市场情绪偏多")
	case model.StructureBearish:
		parts = append(parts, "市场情绪偏空")
	default:
		parts = append(parts, "市场情绪中性")
	}
	switch s.State {
	case model.StateOverbought:
		parts = append(parts, "RSI超买")
	case model.StateOversold:
		parts = append(parts, "RSI超卖")
	}
	switch s.FundingImpact {
	case model.FundingLongPay:
		parts = append(parts, "多头支付资金费")
	case model.FundingShortPay:
		parts = append(parts, "空头支付资金费")
	}
	return fmt.Sprintf("%s (多空比 %.2f)", strings.Join(parts, "，"), s.LongShortRatio)
}
