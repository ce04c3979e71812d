package strategy

import "sentinel-signals/internal/model"

// Score blends the trend, oscillator, volume and sentiment factors into one 0-100 score.
func Score(a *model.Analysis, p Params) (float64, []model.FactorScore) {
	factors := []model.FactorScore{
		scoreTrend(a.Trend, p.weight(WeightTrend)),
		scoreOscillators(a.Indicators, p.weight(WeightOscillators)),
		scoreVolume(p.weight(WeightVolume)),
		scoreSentiment(a.Sentiment, p.weight(WeightSentiment)),
	}
	var total float64
	for _, f := range factors {
		total += f.Weighted
	}
	return clamp(total, 0, 100), factors
}

// Direction maps a score to a trade direction. Both thresholds are inclusive.
func Direction(score float64, p Params) model.Direction {
	switch {
	case score >= p.threshold(ThresholdBuy):
		return model.DirectionLong
	case score <= p.threshold(ThresholdSell):
		return model.DirectionShort
	default:
		return model.DirectionNeutral
	}
}
