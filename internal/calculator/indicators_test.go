package calculator

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"sentinel-signals/internal/model"
)

func makeSeries(n int) *model.MarketSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)*0.5 + 3*math.Sin(float64(i)/4)
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   base - 0.3,
			High:   base + 1.2,
			Low:    base - 1.1,
			Close:  base,
			Volume: 1000 + float64(i%7)*120,
		}
	}
	return &model.MarketSeries{Symbol: "BTCUSDT", Timeframe: "1h", Bars: bars}
}

type panicSMA struct{ Talib }

func (panicSMA) SMA([]float64, int) []float64 { panic("sma exploded") }

func TestBuild_FullSeries(t *testing.T) {
	log, _ := test.NewNullLogger()
	set := NewBuilder(Params{}, log).Build(makeSeries(250))

	want := []string{
		model.MAKey(5), model.MAKey(200), model.EMAKey(50),
		model.KeyRSI, model.KeyMACD, model.KeyMACDSignal, model.KeyMACDHist, model.KeyMACDHistPrev,
		model.KeyK, model.KeyD, model.KeyJ,
		model.KeyBBUpper, model.KeyBBMiddle, model.KeyBBLower, model.KeyBBWidth,
		model.KeyATR, model.KeyATRPercent, model.KeyADX, model.KeySAR, model.KeyCCI,
		model.KeyOBV, model.KeyOBVChange,
	}
	for _, k := range want {
		if _, ok := set.Get(k); !ok {
			t.Errorf("expected %s to be present", k)
		}
	}
	for k, v := range set {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s holds non-finite value %v", k, v)
		}
	}
	if rsi := set[model.KeyRSI]; rsi < 0 || rsi > 100 {
		t.Errorf("rsi out of range: %.2f", rsi)
	}
	k, d, j := set[model.KeyK], set[model.KeyD], set[model.KeyJ]
	if math.Abs(j-(3*k-2*d)) > 1e-9 {
		t.Errorf("J = %.6f, want 3K-2D = %.6f", j, 3*k-2*d)
	}
	u, m, l, ok := set.Bollinger()
	if !ok || !(u >= m && m >= l) {
		t.Errorf("bollinger bands out of order: %.4f %.4f %.4f", u, m, l)
	}
}

func TestBuild_ShortSeriesOmitsLongIndicators(t *testing.T) {
	log, _ := test.NewNullLogger()
	set := NewBuilder(Params{}, log).Build(makeSeries(9))

	if _, ok := set.Get(model.MAKey(5)); !ok {
		t.Error("expected ma_5 with 9 bars")
	}
	for _, k := range []string{model.MAKey(20), model.MAKey(200), model.KeyRSI, model.KeyMACD, model.KeyADX, model.KeyOBVChange} {
		if _, ok := set.Get(k); ok {
			t.Errorf("expected %s to be absent with 9 bars", k)
		}
	}
}

// go-talib zero-fills its lookback and panics on short input, so each family
// must appear exactly at its minimum bar count and not one bar earlier.
func TestBuild_FamilyMinimumBars(t *testing.T) {
	tests := []struct {
		key  string
		need int
	}{
		{model.KeyRSI, 15},
		{model.KeyMACD, 35},
		{model.KeyK, 13},
		{model.KeyATR, 15},
		{model.KeyADX, 28},
		{model.KeySAR, 15},
		{model.KeyOBVChange, 10},
	}
	log, _ := test.NewNullLogger()
	b := NewBuilder(Params{}, log)
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if _, ok := b.Build(makeSeries(tt.need - 1)).Get(tt.key); ok {
				t.Errorf("%s present with %d bars", tt.key, tt.need-1)
			}
			if _, ok := b.Build(makeSeries(tt.need)).Get(tt.key); !ok {
				t.Errorf("%s absent with %d bars", tt.key, tt.need)
			}
		})
	}
}

func TestBuild_EmptySeries(t *testing.T) {
	set := NewBuilder(Params{}, nil).Build(&model.MarketSeries{})
	if len(set) != 0 {
		t.Errorf("expected empty set, got %d entries", len(set))
	}
}

func TestBuild_PanickingPrimitiveIsRecovered(t *testing.T) {
	log, hook := test.NewNullLogger()
	b := &Builder{Lib: panicSMA{}, Params: DefaultParams(), Log: log}
	set := b.Build(makeSeries(120))

	for k := range set {
		if strings.HasPrefix(k, "ma_") {
			t.Errorf("expected no simple MA after panic, found %s", k)
		}
	}
	if _, ok := set.Get(model.EMAKey(20)); !ok {
		t.Error("other families should still be computed")
	}
	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "indicator computation failed" {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning for the failed indicator")
	}
}

func TestWindowRange(t *testing.T) {
	bars := []model.OHLCV{
		{High: 10, Low: 5, Volume: 1},
		{High: 12, Low: 8, Volume: 2},
		{High: 11, Low: 9, Volume: 3},
	}
	r, err := WindowRange(bars, 2)
	if err != nil {
		t.Fatal(err)
	}
	if r.High != 12 || r.Low != 8 || r.Volume != 5 || r.Bars != 2 {
		t.Errorf("unexpected range %+v", r)
	}
	pos, err := r.Position(10)
	if err != nil || pos != 0.5 {
		t.Errorf("expected position 0.5, got %.2f (%v)", pos, err)
	}
	if _, err := WindowRange(nil, 5); err == nil {
		t.Error("expected error for empty bars")
	}
}

func TestBarsPerDay(t *testing.T) {
	cases := map[string]int{"1h": 24, "4h": 6, "15m": 96, "1d": 1, "7x": 0}
	for tf, want := range cases {
		if got := BarsPerDay(tf); got != want {
			t.Errorf("BarsPerDay(%q) = %d, want %d", tf, got, want)
		}
	}
}
