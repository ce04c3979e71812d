// Package analyzer turns a market series into indicator values and market assessments.
package analyzer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"sentinel-signals/internal/calculator"
	"sentinel-signals/internal/model"
)

// Analyzer runs the indicator builder followed by every assessment.
// It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	builder    *calculator.Builder
	levelCount int
	log        logrus.FieldLogger
}

// New creates an Analyzer. levelCount <= 0 uses DefaultLevelCount.
func New(params calculator.Params, levelCount int, log logrus.FieldLogger) *Analyzer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if levelCount <= 0 {
		levelCount = DefaultLevelCount
	}
	return &Analyzer{
		builder:    calculator.NewBuilder(params, log),
		levelCount: levelCount,
		log:        log,
	}
}

// Analyze never fails. An assessment that panics is replaced by its neutral default.
func (a *Analyzer) Analyze(series *model.MarketSeries) *model.Analysis {
	log := a.log.WithFields(logrus.Fields{"symbol": series.Symbol, "timeframe": series.Timeframe})
	log.WithField("bars", series.Len()).Debug("analysis started")

	ind := a.builder.Build(series)
	out := &model.Analysis{
		Symbol:     series.Symbol,
		Timeframe:  series.Timeframe,
		Series:     series,
		Indicators: ind,
		Levels:     model.LevelSet{Support: []float64{}, Resistance: []float64{}},
		Structure:  model.Structure{Label: model.StructureNeutral},
		Sentiment: model.Sentiment{
			Overall: model.StructureNeutral, Score: 50, LongShortRatio: 1,
			State: model.StateNormal, FundingImpact: model.FundingNeutral,
		},
		Trend:      model.Trend{Direction: model.TrendSideways},
		Volatility: model.Volatility{State: model.VolatilityNormal},
	}
	out.LastPrice, out.HasPrice = series.LastClose()

	guard(log, "levels", func() { out.Levels = DetectLevels(series, ind, a.levelCount) })
	guard(log, "structure", func() { out.Structure = ClassifyStructure(series, ind) })
	guard(log, "sentiment", func() { out.Sentiment = AnalyzeSentiment(series, ind) })
	guard(log, "trend", func() { out.Trend = DetermineTrend(series, ind) })
	guard(log, "volatility", func() { out.Volatility = AnalyzeVolatility(series) })

	log.WithFields(logrus.Fields{
		"indicators": len(ind),
		"structure":  out.Structure.Label,
		"trend":      out.Trend.Direction,
		"volatility": out.Volatility.State,
	}).Info("analysis complete")
	return out
}

func guard(log logrus.FieldLogger, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("stage", stage).WithError(fmt.Errorf("%v", r)).Error("assessment failed, using default")
		}
	}()
	fn()
}
