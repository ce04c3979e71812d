package analyzer

import (
	"math"
	"sort"

	"sentinel-signals/internal/model"
)

const (
	minLevelBars = 30
	// DefaultLevelCount is the number of support and resistance levels kept per side.
	DefaultLevelCount = 2
	// neighbours compared on each side of a candidate extremum.
	pivotWing = 2
	// relative price distance under which two levels are merged.
	mergeThreshold = 0.005
)

// extremum is a local high or low; idx turns fractional after merging.
type extremum struct {
	idx   float64
	price float64
}

// DetectLevels extracts support and resistance from local extrema of the series.
// Fewer than 30 bars, or no usable current price, yields an empty LevelSet.
// When a side has fewer than count genuine levels, ATR-spaced levels fill it.
func DetectLevels(series *model.MarketSeries, ind model.IndicatorSet, count int) model.LevelSet {
	if count <= 0 {
		count = DefaultLevelCount
	}
	levels := model.LevelSet{Support: []float64{}, Resistance: []float64{}}
	if series.Len() < minLevelBars {
		return levels
	}
	current, ok := series.LastClose()
	if !ok {
		return levels
	}

	highs, lows := findExtrema(series.Bars)
	highs = mergeLevels(highs)
	lows = mergeLevels(lows)

	for _, h := range highs {
		if h.price > current {
			levels.Resistance = append(levels.Resistance, h.price)
		}
	}
	sort.Float64s(levels.Resistance)
	if len(levels.Resistance) > count {
		levels.Resistance = levels.Resistance[:count]
	}

	for _, l := range lows {
		if l.price < current {
			levels.Support = append(levels.Support, l.price)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(levels.Support)))
	if len(levels.Support) > count {
		levels.Support = levels.Support[:count]
	}

	if atr, ok := ind.Get(model.KeyATR); ok && atr > 0 {
		for k := 1; len(levels.Resistance) < count; k++ {
			levels.Resistance = append(levels.Resistance, current*(1+0.5*float64(k)*atr/current))
		}
		for k := 1; len(levels.Support) < count; k++ {
			levels.Support = append(levels.Support, current*(1-0.5*float64(k)*atr/current))
		}
	}

	sort.Float64s(levels.Resistance)
	sort.Sort(sort.Reverse(sort.Float64Slice(levels.Support)))
	return levels
}

// findExtrema scans bars whose high (low) is strictly above (below) both wings.
func findExtrema(bars []model.OHLCV) (highs, lows []extremum) {
	for i := pivotWing; i < len(bars)-pivotWing; i++ {
		hi, lo := true, true
		for j := i - pivotWing; j <= i+pivotWing; j++ {
			if j == i {
				continue
			}
			if bars[j].High >= bars[i].High {
				hi = false
			}
			if bars[j].Low <= bars[i].Low {
				lo = false
			}
		}
		if hi {
			highs = append(highs, extremum{idx: float64(i), price: bars[i].High})
		}
		if lo {
			lows = append(lows, extremum{idx: float64(i), price: bars[i].Low})
		}
	}
	return highs, lows
}

// mergeLevels walks the price-sorted levels once and averages neighbours
// closer than mergeThreshold to the running cluster.
func mergeLevels(levels []extremum) []extremum {
	if len(levels) == 0 {
		return nil
	}
	sorted := make([]extremum, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].price < sorted[j].price })

	merged := make([]extremum, 0, len(sorted))
	cur := sorted[0]
	for _, lv := range sorted[1:] {
		if cur.price != 0 && math.Abs(lv.price-cur.price)/cur.price < mergeThreshold {
			cur = extremum{idx: (cur.idx + lv.idx) / 2, price: (cur.price + lv.price) / 2}
			continue
		}
		merged = append(merged, cur)
		cur = lv
	}
	return append(merged, cur)
}
