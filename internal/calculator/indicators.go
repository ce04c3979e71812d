package calculator

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"sentinel-signals/internal/model"
)

// Params configures the indicator families. Zero fields take the defaults.
type Params struct {
	MAPeriods       []int
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	KPeriod         int
	DPeriod         int
	JPeriod         int
	BBPeriod        int
	BBStdDev        float64
	ATRPeriod       int
	CCIPeriod       int
	ADXPeriod       int
	SARAcceleration float64
	SARMaximum      float64
}

// DefaultParams returns the stock indicator configuration.
func DefaultParams() Params {
	return Params{
		MAPeriods:       []int{5, 10, 20, 50, 100, 200},
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		KPeriod:         9,
		DPeriod:         3,
		JPeriod:         3,
		BBPeriod:        20,
		BBStdDev:        2,
		ATRPeriod:       14,
		CCIPeriod:       14,
		ADXPeriod:       14,
		SARAcceleration: 0.02,
		SARMaximum:      0.2,
	}
}

// WithDefaults fills every zero field from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if len(p.MAPeriods) == 0 {
		p.MAPeriods = d.MAPeriods
	}
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setFloat := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	setInt(&p.RSIPeriod, d.RSIPeriod)
	setInt(&p.MACDFast, d.MACDFast)
	setInt(&p.MACDSlow, d.MACDSlow)
	setInt(&p.MACDSignal, d.MACDSignal)
	setInt(&p.KPeriod, d.KPeriod)
	setInt(&p.DPeriod, d.DPeriod)
	setInt(&p.JPeriod, d.JPeriod)
	setInt(&p.BBPeriod, d.BBPeriod)
	setFloat(&p.BBStdDev, d.BBStdDev)
	setInt(&p.ATRPeriod, d.ATRPeriod)
	setInt(&p.CCIPeriod, d.CCIPeriod)
	setInt(&p.ADXPeriod, d.ADXPeriod)
	setFloat(&p.SARAcceleration, d.SARAcceleration)
	setFloat(&p.SARMaximum, d.SARMaximum)
	return p
}

// Minimum bar counts per family.
const (
	minSARBars  = 15
	minOBVBars  = 2
	obvLookback = 10
)

// Builder computes indicator sets from a market series.
type Builder struct {
	Lib    Library
	Params Params
	Log    logrus.FieldLogger
}

// NewBuilder creates a Builder backed by go-talib.
func NewBuilder(p Params, log logrus.FieldLogger) *Builder {
	return &Builder{Lib: Talib{}, Params: p.WithDefaults(), Log: log}
}

// Build computes every indicator family the series has enough bars for.
// It never fails: a family that panics or yields no finite value is left out.
func (b *Builder) Build(series *model.MarketSeries) model.IndicatorSet {
	set := model.IndicatorSet{}
	n := series.Len()
	if n == 0 {
		return set
	}
	p := b.Params
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	lastClose := closes[n-1]

	for _, period := range p.MAPeriods {
		b.family(model.MAKey(period), n, period, func() error {
			v, err := lastValue(b.Lib.SMA(closes, period))
			if err != nil {
				return err
			}
			set.Set(model.MAKey(period), v)
			return nil
		})
		b.family(model.EMAKey(period), n, period, func() error {
			v, err := lastValue(b.Lib.EMA(closes, period))
			if err != nil {
				return err
			}
			set.Set(model.EMAKey(period), v)
			return nil
		})
	}

	// RSI needs one extra bar for the first price change.
	b.family("rsi", n, p.RSIPeriod+1, func() error {
		v, err := lastValue(b.Lib.RSI(closes, p.RSIPeriod))
		if err != nil {
			return err
		}
		set.Set(model.KeyRSI, v)
		return nil
	})

	b.family("macd", n, p.MACDSlow+p.MACDSignal, func() error {
		line, sig, hist := b.Lib.MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
		l, err := lastValue(line)
		if err != nil {
			return err
		}
		s, err := lastValue(sig)
		if err != nil {
			return err
		}
		h, err := lastValue(hist)
		if err != nil {
			return err
		}
		set.Set(model.KeyMACD, l)
		set.Set(model.KeyMACDSignal, s)
		set.Set(model.KeyMACDHist, h)
		if prev, err := valueAt(hist, 2); err == nil {
			set.Set(model.KeyMACDHistPrev, prev)
		}
		return nil
	})

	kdjBars := p.KPeriod + p.DPeriod
	if alt := p.KPeriod + p.DPeriod + p.JPeriod - 2; alt > kdjBars {
		kdjBars = alt
	}
	b.family("kdj", n, kdjBars, func() error {
		kSeries, dSeries := b.Lib.Stoch(highs, lows, closes, p.KPeriod, p.DPeriod, p.JPeriod)
		k, err := lastValue(kSeries)
		if err != nil {
			return err
		}
		d, err := lastValue(dSeries)
		if err != nil {
			return err
		}
		set.Set(model.KeyK, k)
		set.Set(model.KeyD, d)
		set.Set(model.KeyJ, 3*k-2*d)
		return nil
	})

	b.family("bollinger", n, p.BBPeriod, func() error {
		up, mid, lo := b.Lib.BBands(closes, p.BBPeriod, p.BBStdDev)
		u, err := lastValue(up)
		if err != nil {
			return err
		}
		m, err := lastValue(mid)
		if err != nil {
			return err
		}
		l, err := lastValue(lo)
		if err != nil {
			return err
		}
		set.Set(model.KeyBBUpper, u)
		set.Set(model.KeyBBMiddle, m)
		set.Set(model.KeyBBLower, l)
		if m != 0 {
			set.Set(model.KeyBBWidth, (u-l)/m)
		}
		return nil
	})

	b.family("atr", n, p.ATRPeriod+1, func() error {
		v, err := lastValue(b.Lib.ATR(highs, lows, closes, p.ATRPeriod))
		if err != nil {
			return err
		}
		set.Set(model.KeyATR, v)
		if lastClose != 0 {
			set.Set(model.KeyATRPercent, v/lastClose)
		}
		return nil
	})

	b.family("adx", n, 2*p.ADXPeriod, func() error {
		v, err := lastValue(b.Lib.ADX(highs, lows, closes, p.ADXPeriod))
		if err != nil {
			return err
		}
		set.Set(model.KeyADX, v)
		return nil
	})

	b.family("sar", n, minSARBars, func() error {
		v, err := lastValue(b.Lib.SAR(highs, lows, p.SARAcceleration, p.SARMaximum))
		if err != nil {
			return err
		}
		set.Set(model.KeySAR, v)
		return nil
	})

	b.family("cci", n, p.CCIPeriod, func() error {
		v, err := lastValue(b.Lib.CCI(highs, lows, closes, p.CCIPeriod))
		if err != nil {
			return err
		}
		set.Set(model.KeyCCI, v)
		return nil
	})

	b.family("obv", n, minOBVBars, func() error {
		obv := b.Lib.OBV(closes, series.Volumes())
		v, err := lastValue(obv)
		if err != nil {
			return err
		}
		set.Set(model.KeyOBV, v)
		base, err := valueAt(obv, obvLookback)
		if err != nil {
			return nil
		}
		if math.Abs(base) > 0 {
			set.Set(model.KeyOBVChange, (v-base)/math.Abs(base))
		} else {
			set.Set(model.KeyOBVChange, 0)
		}
		return nil
	})

	return set
}

// family runs one indicator computation when enough bars exist.
// Panics from the primitive are recovered and logged; the entries stay absent.
func (b *Builder) family(name string, have, need int, compute func() error) {
	if have < need {
		b.logger().WithFields(logrus.Fields{"indicator": name, "bars": have, "need": need}).
			Debug("not enough bars, indicator skipped")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger().WithField("indicator", name).WithError(fmt.Errorf("%v", r)).
				Warn("indicator computation failed")
		}
	}()
	if err := compute(); err != nil {
		b.logger().WithField("indicator", name).WithError(err).Debug("indicator has no value")
	}
}

func (b *Builder) logger() logrus.FieldLogger {
	if b.Log == nil {
		return logrus.StandardLogger()
	}
	return b.Log
}
