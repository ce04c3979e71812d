package model

// StructureLabel classifies the market structure.
type StructureLabel string

const (
	StructureBullish StructureLabel = "bullish"
	StructureBearish StructureLabel = "bearish"
	StructureNeutral StructureLabel = "neutral"
)

// TrendDirection classifies the trend.
type TrendDirection string

const (
	TrendUp       TrendDirection = "uptrend"
	TrendDown     TrendDirection = "downtrend"
	TrendSideways TrendDirection = "sideways"
)

// MarketState is the overbought/oversold reading.
type MarketState string

const (
	StateOverbought MarketState = "overbought"
	StateOversold   MarketState = "oversold"
	StateNormal     MarketState = "normal"
)

// FundingImpact tells which side pays funding.
type FundingImpact string

const (
	FundingLongPay  FundingImpact = "long_pay"
	FundingShortPay FundingImpact = "short_pay"
	FundingNeutral  FundingImpact = "neutral"
)

// VolatilityState classifies current against average volatility.
type VolatilityState string

const (
	VolatilityHigh   VolatilityState = "high"
	VolatilityNormal VolatilityState = "normal"
	VolatilityLow    VolatilityState = "low"
)

// LevelSet holds support and resistance prices, nearest to the current price first.
type LevelSet struct {
	Support    []float64
	Resistance []float64
}

// Structure is the market structure assessment.
type Structure struct {
	Label       StructureLabel
	Strength    float64 // 0-100
	Description string
}

// Sentiment is the market sentiment assessment.
type Sentiment struct {
	Overall        StructureLabel
	Score          float64
	LongShortRatio float64
	State          MarketState
	FundingImpact  FundingImpact
	Description    string
}

// Trend is the trend assessment.
type Trend struct {
	Direction   TrendDirection
	Strength    float64 // 0-100
	Description string
}

// Volatility is the realized volatility assessment. Values are annualized fractions.
type Volatility struct {
	Current     float64
	Average     float64
	State       VolatilityState
	Description string
}

// Analysis bundles every assessment computed for one series.
type Analysis struct {
	Symbol     string
	Timeframe  string
	Series     *MarketSeries
	Indicators IndicatorSet
	Levels     LevelSet
	Structure  Structure
	Sentiment  Sentiment
	Trend      Trend
	Volatility Volatility
	LastPrice  float64
	HasPrice   bool
}
