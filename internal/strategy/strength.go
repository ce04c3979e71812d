package strategy

import "sentinel-signals/internal/model"

// Narrow bands around 50 used once the score is inside the buy/sell thresholds.
const (
	moderateHigh = 55
	moderateLow  = 45
	weakHigh     = 52
	weakLow      = 48
)

// StrengthLabels maps a star count to its reliability and timing text.
var StrengthLabels = map[int]struct {
	Reliability string
	Timing      string
}{
	5: {"高度可靠", "建议进场"},
	4: {"高度可靠", "建议进场"},
	3: {"较为可靠", "可以考虑"},
	2: {"一般可靠", "等待确认"},
	1: {"参考为主", "暂不操作"},
}

// EvaluateStrength rates a score from 1 to 5 stars. Every boundary is inclusive.
func EvaluateStrength(score float64, p Params) model.Strength {
	var stars int
	switch {
	case score >= p.threshold(ThresholdStrongBuy) || score <= p.threshold(ThresholdStrongSell):
		stars = 5
	case score >= p.threshold(ThresholdBuy) || score <= p.threshold(ThresholdSell):
		stars = 4
	case score >= moderateHigh || score <= moderateLow:
		stars = 3
	case score >= weakHigh || score <= weakLow:
		stars = 2
	default:
		stars = 1
	}
	l := StrengthLabels[stars]
	return model.Strength{Stars: stars, Reliability: l.Reliability, Timing: l.Timing}
}
