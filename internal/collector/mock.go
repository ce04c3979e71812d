package collector

import (
	"context"
	"math"
	"time"

	"sentinel-signals/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64
	Drift   float64 // relative change per bar of the generated series
	Bars    []model.OHLCV
	Funding float64
	OI      float64
	Spot    *model.Ticker
	// Anchor is the open time of the newest generated bar; zero means now.
	Anchor time.Time
	// KlineErr, when set, is returned by FetchKlines.
	KlineErr error
	// AuxErr, when set, is returned by the ticker, funding and open interest calls.
	AuxErr error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchKlines(_ context.Context, _, timeframe string, limit int) ([]model.OHLCV, error) {
	if m.KlineErr != nil {
		return nil, m.KlineErr
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	step, ok := model.TimeframeDuration(timeframe)
	if !ok {
		step = time.Hour
	}
	anchor := m.Anchor
	if anchor.IsZero() {
		anchor = time.Now().UTC().Truncate(step)
	}
	return generateMockBars(m.Price, m.Drift, limit, step, anchor), nil
}

func (m *MockFetcher) FetchTicker(_ context.Context, _ string) (*model.Ticker, error) {
	if m.AuxErr != nil {
		return nil, m.AuxErr
	}
	return m.Spot, nil
}

func (m *MockFetcher) FetchFundingRate(_ context.Context, _ string) (float64, error) {
	if m.AuxErr != nil {
		return 0, m.AuxErr
	}
	return m.Funding, nil
}

func (m *MockFetcher) FetchOpenInterest(_ context.Context, _ string) (float64, error) {
	if m.AuxErr != nil {
		return 0, m.AuxErr
	}
	return m.OI, nil
}

// generateMockBars drifts from basePrice with a slow wave on top; the newest bar opens at last.
func generateMockBars(basePrice, drift float64, count int, step time.Duration, last time.Time) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + drift*float64(i-count/2)) * (1 + 0.01*math.Sin(float64(i)/5))
		bars[i] = model.OHLCV{
			Time:   last.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
