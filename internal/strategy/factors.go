package strategy

import (
	"fmt"

	"sentinel-signals/internal/model"
)

// scoreTrend maps the trend assessment onto 0-100 around a neutral 50.
func scoreTrend(t model.Trend, weight float64) model.FactorScore {
	var score float64
	switch t.Direction {
	case model.TrendUp:
		score = min(100, 50+t.Strength)
	case model.TrendDown:
		score = max(0, 50-t.Strength)
	default:
		score = 50
	}
	return model.FactorScore{
		Name:       "趋势",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: fmt.Sprintf("%s 强度%.0f", trendLabel(t.Direction), t.Strength),
	}
}

// scoreOscillators starts at 50 and steps by the RSI bucket and the MACD relation.
func scoreOscillators(ind model.IndicatorSet, weight float64) model.FactorScore {
	score := 50.0
	commentary := "RSI不可用"

	if rsi, ok := ind.Get(model.KeyRSI); ok {
		switch {
		case rsi > 70:
			score += 20
		case rsi > 60:
			score += 10
		case rsi < 30:
			score -= 20
		case rsi < 40:
			score -= 10
		}
		commentary = fmt.Sprintf("RSI=%.0f", rsi)
	}

	if line, signal, hist, ok := ind.MACD(); ok {
		switch {
		case line > signal && hist > 0:
			score += 15
		case line > signal && hist < 0:
			score += 5
		case line < signal && hist < 0:
			score -= 15
		case line < signal && hist > 0:
			score -= 5
		}
		commentary += fmt.Sprintf(" MACD柱=%.4f", hist)
	}

	score = clamp(score, 0, 100)
	return model.FactorScore{
		Name:       "震荡指标",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: commentary,
	}
}

// scoreVolume is a neutral placeholder; no volume adjustment is applied.
func scoreVolume(weight float64) model.FactorScore {
	return model.FactorScore{
		Name:       "成交量",
		RawScore:   50,
		Weight:     weight,
		Weighted:   50 * weight,
		Commentary: "中性",
	}
}

// scoreSentiment maps the sentiment label, then adjusts for funding and overbought/oversold.
func scoreSentiment(s model.Sentiment, weight float64) model.FactorScore {
	score := 50.0
	switch s.Overall {
	case model.StructureBullish:
		score = 75
	case model.StructureBearish:
		score = 25
	}

	switch s.FundingImpact {
	case model.FundingLongPay:
		score -= 10
	case model.FundingShortPay:
		score += 10
	}

	switch s.State {
	case model.StateOverbought:
		score = max(30, score-20)
	case model.StateOversold:
		score = min(70, score+20)
	}

	score = clamp(score, 0, 100)
	return model.FactorScore{
		Name:       "市场情绪",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: fmt.Sprintf("多空比 %.2f", s.LongShortRatio),
	}
}

func trendLabel(d model.TrendDirection) string {
	switch d {
	case model.TrendUp:
		return "上升"
	case model.TrendDown:
		return "下降"
	default:
		return "横盘"
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
