package strategy

import (
	"math"

	"sentinel-signals/internal/model"
)

const (
	minVolatility     = 0.01
	leverageRiskScale = 0.5
	maxPositionSize   = 0.30
)

// LeverageTiers maps volatility ceilings to the base leverage; the last tier catches the rest.
var LeverageTiers = []struct {
	MaxVolatility float64
	Leverage      float64
}{
	{0.02, 10},
	{0.05, 5},
	{math.Inf(1), 3},
}

// CalculateRisk derives risk, reward, leverage and position size from the trade prices.
// Percent fields are scaled by 100.
func CalculateRisk(entry, stop, target float64, vol model.Volatility, p Params) model.RiskParams {
	risk := math.Abs(entry-stop) / entry
	reward := math.Abs(target-entry) / entry
	var rr float64
	if risk > 0 {
		rr = reward / risk
	}

	v := vol.Current
	if math.IsNaN(v) || v < minVolatility {
		v = minVolatility
	}

	base := LeverageTiers[len(LeverageTiers)-1].Leverage
	for _, t := range LeverageTiers {
		if v < t.MaxVolatility {
			base = t.Leverage
			break
		}
	}
	adjusted := base
	if risk > 0 {
		adjusted = min(base, leverageRiskScale/risk)
	}
	leverage := int(adjusted)
	leverage = max(1, min(leverage, p.maxLeverage()))

	return model.RiskParams{
		RiskPercent:         risk * 100,
		RewardPercent:       reward * 100,
		RiskRewardRatio:     rr,
		SuggestedLeverage:   leverage,
		PositionSizePercent: min(0.1*rr, maxPositionSize) * 100,
		VolatilityPercent:   v * 100,
	}
}
