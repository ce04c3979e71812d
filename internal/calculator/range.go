package calculator

import (
	"errors"
	"math"
	"time"

	"sentinel-signals/internal/model"
)

// Range is the high/low envelope and summed volume of a bar window.
type Range struct {
	High   float64
	Low    float64
	Volume float64
	Bars   int
}

// WindowRange scans the most recent window bars and returns their envelope.
// A window <= 0 scans every bar.
func WindowRange(bars []model.OHLCV, window int) (Range, error) {
	if len(bars) == 0 {
		return Range{}, errors.New("no bars provided")
	}
	n := len(bars)
	start := 0
	if window > 0 && n > window {
		start = n - window
	}
	r := Range{High: math.Inf(-1), Low: math.Inf(1)}
	for i := start; i < n; i++ {
		if bars[i].High > r.High {
			r.High = bars[i].High
		}
		if bars[i].Low < r.Low {
			r.Low = bars[i].Low
		}
		r.Volume += bars[i].Volume
		r.Bars++
	}
	return r, nil
}

// Position returns where price sits within the range (0.0~1.0).
func (r Range) Position(price float64) (float64, error) {
	if r.High == r.Low {
		return 0.5, nil
	}
	if r.High < r.Low {
		return 0, errors.New("high must be >= low")
	}
	pos := (price - r.Low) / (r.High - r.Low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// BarsPerDay reports how many bars of the timeframe make up 24 hours.
// Unknown timeframes and intervals longer than a day return 0.
func BarsPerDay(timeframe string) int {
	d, ok := model.TimeframeDuration(timeframe)
	if !ok || d > 24*time.Hour {
		return 0
	}
	return int(24 * time.Hour / d)
}
