package strategy

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"sentinel-signals/internal/analyzer"
	"sentinel-signals/internal/calculator"
	"sentinel-signals/internal/model"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// uptrendSeries rises with growing steps and a small deterministic wobble.
func uptrendSeries(n int) *model.MarketSeries {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		c := 100 + 0.5*x + 0.01*x*x + 0.1*math.Sin(1.7*x)
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * 4 * time.Hour),
			Open:   c - 0.2,
			High:   c * 1.005,
			Low:    c * 0.995,
			Close:  c,
			Volume: 500 + float64(i%5)*50,
		}
	}
	return &model.MarketSeries{Symbol: "BTCUSDT", Timeframe: "4h", Exchange: "binance", Bars: bars}
}

func TestEvaluateStrength_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		stars int
	}{
		{100, 5}, {85, 5}, {80, 5}, {79.9, 4}, {65, 4}, {60, 4}, {59.9, 3},
		{56, 3}, {55, 3}, {54.9, 2}, {53, 2}, {52, 2}, {51.9, 1}, {50, 1},
		{48.1, 1}, {48, 2}, {45.1, 2}, {45, 3}, {20.1, 3}, {20, 4}, {0.1, 4}, {0, 5},
	}
	for _, tt := range tests {
		got := EvaluateStrength(tt.score, DefaultParams())
		if got.Stars != tt.stars {
			t.Errorf("score %.1f: stars = %d, want %d", tt.score, got.Stars, tt.stars)
		}
		if got.Reliability == "" || got.Timing == "" {
			t.Errorf("score %.1f: missing labels %+v", tt.score, got)
		}
	}
}

func TestDirection_InclusiveThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  model.Direction
	}{
		{60, model.DirectionLong},
		{59.99, model.DirectionNeutral},
		{40, model.DirectionNeutral},
		{20.01, model.DirectionNeutral},
		{20, model.DirectionShort},
		{0, model.DirectionShort},
	}
	for _, tt := range tests {
		// A zero Params must behave like the defaults.
		for _, p := range []Params{DefaultParams(), {}} {
			if got := Direction(tt.score, p); got != tt.want {
				t.Errorf("Direction(%.2f) = %s, want %s", tt.score, got, tt.want)
			}
		}
	}

	p := Params{Thresholds: map[string]float64{ThresholdBuy: 70}}
	if got := Direction(65, p); got != model.DirectionNeutral {
		t.Errorf("custom buy threshold ignored: got %s", got)
	}
	if got := Direction(15, p); got != model.DirectionShort {
		t.Errorf("missing sell threshold should default to 20: got %s", got)
	}
}

func TestScore_Clamped(t *testing.T) {
	a := &model.Analysis{
		Indicators: model.IndicatorSet{model.KeyRSI: 90},
		Trend:      model.Trend{Direction: model.TrendUp, Strength: 80},
		Sentiment:  model.Sentiment{Overall: model.StructureBullish},
	}
	heavy := Params{Weights: map[string]float64{WeightTrend: 5, WeightOscillators: 5, WeightVolume: 5, WeightSentiment: 5}}
	if s, _ := Score(a, heavy); s != 100 {
		t.Errorf("expected clamp at 100, got %.2f", s)
	}
	negative := Params{Weights: map[string]float64{WeightTrend: -1, WeightOscillators: -1, WeightVolume: -1, WeightSentiment: -1}}
	if s, _ := Score(a, negative); s != 0 {
		t.Errorf("expected clamp at 0, got %.2f", s)
	}
}

func TestScore_Factors(t *testing.T) {
	a := &model.Analysis{
		Indicators: model.IndicatorSet{
			model.KeyRSI: 65, model.KeyMACD: 1, model.KeyMACDSignal: 2, model.KeyMACDHist: 0.5,
		},
		Trend: model.Trend{Direction: model.TrendDown, Strength: 30},
		Sentiment: model.Sentiment{
			Overall: model.StructureNeutral, FundingImpact: model.FundingShortPay, State: model.StateOversold,
		},
	}
	score, factors := Score(a, Params{})
	if len(factors) != 4 {
		t.Fatalf("expected 4 factors, got %d", len(factors))
	}
	// trend 20, oscillators 50+10-5=55, volume 50, sentiment min(70, 60+20)=70
	wantRaw := []float64{20, 55, 50, 70}
	for i, f := range factors {
		if f.RawScore != wantRaw[i] {
			t.Errorf("factor %s raw = %.2f, want %.2f", f.Name, f.RawScore, wantRaw[i])
		}
	}
	if want := 20*0.3 + 55*0.3 + 50*0.2 + 70*0.2; !approx(score, want) {
		t.Errorf("score = %.4f, want %.4f", score, want)
	}
}

func TestScoreSentiment_OverboughtCap(t *testing.T) {
	got := scoreSentiment(model.Sentiment{Overall: model.StructureBullish, State: model.StateOverbought}, 1)
	if got.RawScore != 55 {
		t.Errorf("bullish overbought = %.0f, want 55", got.RawScore)
	}
	got = scoreSentiment(model.Sentiment{Overall: model.StructureBearish, FundingImpact: model.FundingLongPay, State: model.StateOverbought}, 1)
	if got.RawScore != 30 {
		t.Errorf("bearish overbought = %.0f, want floor 30", got.RawScore)
	}
}

func TestStopLossAndTarget(t *testing.T) {
	tests := []struct {
		name   string
		dir    model.Direction
		levels model.LevelSet
		ind    model.IndicatorSet
		stop   float64
		target float64
	}{
		{
			name:   "long uses nearest support and first resistance",
			dir:    model.DirectionLong,
			levels: model.LevelSet{Support: []float64{97, 95}, Resistance: []float64{103, 110}},
			stop:   97,
			target: 103,
		},
		{
			name:   "long support too close falls back to 2%",
			dir:    model.DirectionLong,
			levels: model.LevelSet{Support: []float64{99.5}, Resistance: []float64{}},
			stop:   98,
			target: 104,
		},
		{
			name:   "long without supports uses ATR",
			dir:    model.DirectionLong,
			ind:    model.IndicatorSet{model.KeyATR: 2},
			stop:   96,
			target: 108,
		},
		{
			name:   "long without supports or ATR",
			dir:    model.DirectionLong,
			stop:   98,
			target: 104,
		},
		{
			name:   "short mirrors long",
			dir:    model.DirectionShort,
			levels: model.LevelSet{Support: []float64{96}, Resistance: []float64{103}},
			stop:   103,
			target: 96,
		},
		{
			name:   "short resistance too close",
			dir:    model.DirectionShort,
			levels: model.LevelSet{Resistance: []float64{100.5}},
			stop:   102,
			target: 96,
		},
		{
			name:   "neutral takes no risk",
			dir:    model.DirectionNeutral,
			levels: model.LevelSet{Support: []float64{97}, Resistance: []float64{103}},
			stop:   100,
			target: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stop := stopLoss(tt.dir, 100, tt.levels, tt.ind)
			if !approx(stop, tt.stop) {
				t.Errorf("stop = %.4f, want %.4f", stop, tt.stop)
			}
			target := targetPrice(tt.dir, 100, stop, tt.levels, 2)
			if !approx(target, tt.target) {
				t.Errorf("target = %.4f, want %.4f", target, tt.target)
			}
		})
	}
}

func TestCalculateRisk(t *testing.T) {
	tests := []struct {
		name     string
		stop     float64
		target   float64
		vol      float64
		maxLev   int
		leverage int
		rr       float64
		position float64
	}{
		{"high volatility caps at 3x", 98, 104, 0.5, 0, 3, 2, 20},
		{"low volatility limited by risk", 90, 120, 0.015, 0, 5, 2, 20},
		{"volatility floor", 99, 104, 0, 0, 10, 4, 30},
		{"configured max leverage", 99, 104, 0, 8, 8, 4, 30},
		{"no risk", 100, 100, 0, 0, 10, 0, 0},
		{"wide stop floors at 1x", 10, 130, 0.5, 0, 1, 30.0 / 90.0, 100.0 / 30.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.MaxLeverage = tt.maxLev
			r := CalculateRisk(100, tt.stop, tt.target, model.Volatility{Current: tt.vol}, p)
			if r.SuggestedLeverage != tt.leverage {
				t.Errorf("leverage = %d, want %d", r.SuggestedLeverage, tt.leverage)
			}
			if r.SuggestedLeverage < 1 || r.SuggestedLeverage > 20 {
				t.Errorf("leverage %d outside [1,20]", r.SuggestedLeverage)
			}
			if !approx(r.RiskRewardRatio, tt.rr) {
				t.Errorf("rr = %.4f, want %.4f", r.RiskRewardRatio, tt.rr)
			}
			if !approx(r.PositionSizePercent, tt.position) {
				t.Errorf("position = %.4f, want %.4f", r.PositionSizePercent, tt.position)
			}
		})
	}
}

func TestGenerate_NoPrice(t *testing.T) {
	cases := []*model.Analysis{
		nil,
		{HasPrice: false},
		{HasPrice: true, LastPrice: math.NaN()},
		{HasPrice: true, LastPrice: 0},
	}
	for i, a := range cases {
		if sig, ok := Generate(a, DefaultParams()); ok || sig != nil {
			t.Errorf("case %d: expected no signal, got %+v", i, sig)
		}
	}
}

func TestGenerate_NeutralWithoutIndicators(t *testing.T) {
	a := &model.Analysis{
		Symbol: "SOLUSDT", Timeframe: "1h", LastPrice: 150, HasPrice: true,
		Indicators: model.IndicatorSet{},
		Trend:      model.Trend{Direction: model.TrendSideways},
		Sentiment:  model.Sentiment{Overall: model.StructureNeutral},
	}
	sig, ok := Generate(a, Params{})
	if !ok {
		t.Fatal("expected a signal")
	}
	if sig.Direction != model.DirectionNeutral || !approx(sig.Score, 50) {
		t.Errorf("expected neutral 50, got %s %.2f", sig.Direction, sig.Score)
	}
	if sig.StopLoss != sig.EntryPrice || sig.TargetPrice != sig.EntryPrice {
		t.Errorf("neutral stop/target must equal entry: %+v", sig)
	}
	if sig.Risk.RiskRewardRatio != 0 || sig.Strength.Stars != 1 {
		t.Errorf("unexpected risk/strength %+v %+v", sig.Risk, sig.Strength)
	}
}

func TestGenerate_UptrendEndToEnd(t *testing.T) {
	log, _ := test.NewNullLogger()
	a := analyzer.New(calculator.Params{}, 0, log).Analyze(uptrendSeries(100))

	if a.Structure.Label != model.StructureBullish {
		t.Errorf("structure = %s (%.1f), want bullish", a.Structure.Label, a.Structure.Strength)
	}
	if a.Trend.Direction != model.TrendUp {
		t.Errorf("trend = %s, want uptrend", a.Trend.Direction)
	}
	if h, ok := a.Indicators.Get(model.KeyMACDHist); !ok || h <= 0 {
		t.Errorf("expected positive MACD histogram, got %.4f (%v)", h, ok)
	}

	sig, ok := Generate(a, DefaultParams())
	if !ok {
		t.Fatal("expected a signal")
	}
	if sig.Score < 60 {
		t.Errorf("score = %.2f, want >= 60", sig.Score)
	}
	if sig.Direction != model.DirectionLong {
		t.Errorf("direction = %s, want long", sig.Direction)
	}
	if !(sig.StopLoss < sig.EntryPrice && sig.EntryPrice < sig.TargetPrice) {
		t.Errorf("expected stop < entry < target, got %.4f %.4f %.4f", sig.StopLoss, sig.EntryPrice, sig.TargetPrice)
	}
	if !sig.Timestamp.Equal(a.Series.Bars[len(a.Series.Bars)-1].Time) {
		t.Errorf("timestamp = %v, want last bar time", sig.Timestamp)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	log, _ := test.NewNullLogger()
	run := func() *model.Signal {
		a := analyzer.New(calculator.Params{}, 0, log).Analyze(uptrendSeries(150))
		sig, _ := Generate(a, DefaultParams())
		return sig
	}
	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("signals differ:\n%+v\n%+v", first, second)
	}
}
