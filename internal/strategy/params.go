package strategy

// Weight keys of the composite score.
const (
	WeightTrend       = "trend"
	WeightOscillators = "oscillators"
	WeightVolume      = "volume"
	WeightSentiment   = "sentiment"
)

// Threshold keys on the 0-100 score scale.
const (
	ThresholdStrongBuy  = "strong_buy"
	ThresholdBuy        = "buy"
	ThresholdNeutral    = "neutral"
	ThresholdSell       = "sell"
	ThresholdStrongSell = "strong_sell"
)

// DefaultWeights are used for every weight key the caller leaves out.
// The weights are not normalized; keeping their sum at 1 is up to the caller.
var DefaultWeights = map[string]float64{
	WeightTrend:       0.3,
	WeightOscillators: 0.3,
	WeightVolume:      0.2,
	WeightSentiment:   0.2,
}

// DefaultThresholds are used for every threshold key the caller leaves out.
var DefaultThresholds = map[string]float64{
	ThresholdStrongBuy:  80,
	ThresholdBuy:        60,
	ThresholdNeutral:    40,
	ThresholdSell:       20,
	ThresholdStrongSell: 0,
}

const (
	defaultRiskReward  = 2.0
	defaultMaxLeverage = 20
)

// Params configures scoring and signal synthesis. Missing keys and zero
// values fall back to the defaults above.
type Params struct {
	Weights         map[string]float64
	Thresholds      map[string]float64
	RiskRewardRatio float64
	MaxLeverage     int
}

// DefaultParams returns a Params with every default filled in.
func DefaultParams() Params {
	p := Params{
		Weights:         make(map[string]float64, len(DefaultWeights)),
		Thresholds:      make(map[string]float64, len(DefaultThresholds)),
		RiskRewardRatio: defaultRiskReward,
		MaxLeverage:     defaultMaxLeverage,
	}
	for k, v := range DefaultWeights {
		p.Weights[k] = v
	}
	for k, v := range DefaultThresholds {
		p.Thresholds[k] = v
	}
	return p
}

func (p Params) weight(key string) float64 {
	if v, ok := p.Weights[key]; ok {
		return v
	}
	return DefaultWeights[key]
}

func (p Params) threshold(key string) float64 {
	if v, ok := p.Thresholds[key]; ok {
		return v
	}
	return DefaultThresholds[key]
}

func (p Params) riskReward() float64 {
	if p.RiskRewardRatio <= 0 {
		return defaultRiskReward
	}
	return p.RiskRewardRatio
}

func (p Params) maxLeverage() int {
	if p.MaxLeverage <= 0 {
		return defaultMaxLeverage
	}
	return p.MaxLeverage
}
