package model

import "time"

// Direction is the trade direction of a signal.
type Direction string

const (
	DirectionLong    Direction = "long"
	DirectionShort   Direction = "short"
	DirectionNeutral Direction = "neutral"
)

// RiskParams are the position risk figures. Percent fields are already scaled by 100.
type RiskParams struct {
	RiskPercent         float64
	RewardPercent       float64
	RiskRewardRatio     float64
	SuggestedLeverage   int
	PositionSizePercent float64
	VolatilityPercent   float64
}

// Strength is the star rating of a signal.
type Strength struct {
	Stars       int // 1-5
	Reliability string
	Timing      string
}

// FactorScore is one weighted component of the composite score.
type FactorScore struct {
	Name       string
	RawScore   float64 // 0-100
	Weight     float64
	Weighted   float64
	Commentary string
}

// Signal is the final output of the strategy engine.
type Signal struct {
	Symbol      string
	Timeframe   string
	Direction   Direction
	Score       float64
	Factors     []FactorScore
	EntryPrice  float64
	StopLoss    float64
	TargetPrice float64
	Risk        RiskParams
	Strength    Strength
	Timestamp   time.Time
}
