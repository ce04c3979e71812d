package strategy

import (
	"math"

	"sentinel-signals/internal/model"
)

const (
	// minStopDistance is the closest a level may sit to entry before the fixed stop is used.
	minStopDistance = 0.01
	// fallbackStop is the fixed stop distance as a fraction of entry.
	fallbackStop = 0.02
	// atrStopMultiple spaces the stop when no level exists on that side.
	atrStopMultiple = 2.0
	// atrFallback stands in for a missing ATR as a fraction of entry.
	atrFallback = 0.01
)

// Generate turns an analysis into a trade signal.
// ok is false when the analysis carries no usable current price.
func Generate(a *model.Analysis, p Params) (sig *model.Signal, ok bool) {
	if a == nil || !a.HasPrice || math.IsNaN(a.LastPrice) || math.IsInf(a.LastPrice, 0) || a.LastPrice <= 0 {
		return nil, false
	}

	score, factors := Score(a, p)
	direction := Direction(score, p)
	entry := a.LastPrice
	stop := stopLoss(direction, entry, a.Levels, a.Indicators)
	target := targetPrice(direction, entry, stop, a.Levels, p.riskReward())

	sig = &model.Signal{
		Symbol:      a.Symbol,
		Timeframe:   a.Timeframe,
		Direction:   direction,
		Score:       score,
		Factors:     factors,
		EntryPrice:  entry,
		StopLoss:    stop,
		TargetPrice: target,
		Risk:        CalculateRisk(entry, stop, target, a.Volatility, p),
		Strength:    EvaluateStrength(score, p),
	}
	if a.Series != nil {
		sig.Timestamp = a.Series.AsOf()
	}
	return sig, true
}

// stopLoss places the stop behind the nearest level on the losing side.
func stopLoss(d model.Direction, entry float64, levels model.LevelSet, ind model.IndicatorSet) float64 {
	atr, ok := ind.Get(model.KeyATR)
	if !ok || atr <= 0 {
		atr = entry * atrFallback
	}

	switch d {
	case model.DirectionLong:
		if len(levels.Support) == 0 {
			return entry - atrStopMultiple*atr
		}
		nearest := entry * (1 - fallbackStop)
		found := false
		for _, s := range levels.Support {
			if s < entry && (!found || s > nearest) {
				nearest, found = s, true
			}
		}
		if (entry-nearest)/entry < minStopDistance {
			return entry * (1 - fallbackStop)
		}
		return nearest
	case model.DirectionShort:
		if len(levels.Resistance) == 0 {
			return entry + atrStopMultiple*atr
		}
		nearest := entry * (1 + fallbackStop)
		found := false
		for _, r := range levels.Resistance {
			if r > entry && (!found || r < nearest) {
				nearest, found = r, true
			}
		}
		if (nearest-entry)/entry < minStopDistance {
			return entry * (1 + fallbackStop)
		}
		return nearest
	default:
		return entry
	}
}

// targetPrice projects riskReward times the stop distance and stops short at
// the first level in the way.
func targetPrice(d model.Direction, entry, stop float64, levels model.LevelSet, riskReward float64) float64 {
	dist := math.Abs(entry - stop)
	switch d {
	case model.DirectionLong:
		target := entry + riskReward*dist
		for _, r := range levels.Resistance {
			if r > entry && r < target {
				target = r
			}
		}
		return target
	case model.DirectionShort:
		target := entry - riskReward*dist
		for _, s := range levels.Support {
			if s < entry && s > target {
				target = s
			}
		}
		return target
	default:
		return entry
	}
}
