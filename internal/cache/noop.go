package cache

import "sentinel-signals/internal/model"

// NoopCache is used when SQLite is not configured. Every Load misses.
type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (n *NoopCache) Save(_ *model.MarketSeries) error { return nil }
func (n *NoopCache) Load(_, _ string, _ int) (*model.MarketSeries, error) {
	return nil, ErrMiss
}
func (n *NoopCache) Close() error { return nil }
