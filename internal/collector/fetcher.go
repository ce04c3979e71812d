package collector

import (
	"context"

	"sentinel-signals/internal/model"
)

// Fetcher defines the interface for fetching market data.
// Symbols are exchange symbols without a separator, e.g. "BTCUSDT".
type Fetcher interface {
	FetchKlines(ctx context.Context, symbol, timeframe string, limit int) ([]model.OHLCV, error)
	FetchTicker(ctx context.Context, symbol string) (*model.Ticker, error)
	FetchFundingRate(ctx context.Context, symbol string) (float64, error)
	FetchOpenInterest(ctx context.Context, symbol string) (float64, error)
	Name() string
}
