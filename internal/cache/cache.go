// Package cache stores fetched market series so a failed fetch can fall back to the last known bars.
package cache

import (
	"errors"

	"sentinel-signals/internal/model"
)

// ErrMiss is returned by Load when nothing is cached for the pair.
var ErrMiss = errors.New("cache miss")

// Cache persists market series per (symbol, timeframe).
type Cache interface {
	// Save upserts the bars and the contract context of the series.
	Save(series *model.MarketSeries) error
	// Load returns at most limit of the newest cached bars in chronological order.
	Load(symbol, timeframe string, limit int) (*model.MarketSeries, error)
	Close() error
}
