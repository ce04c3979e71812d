package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sentinel-signals/internal/cache"
	"sentinel-signals/internal/model"
)

// ErrNoBars is returned when neither the exchange nor the cache has bars for the pair.
var ErrNoBars = errors.New("no bars available")

// DefaultLimit is the number of bars requested per series.
const DefaultLimit = 200

// Collector assembles a MarketSeries from a Fetcher and keeps the bar cache current.
type Collector struct {
	Fetcher Fetcher
	Cache   cache.Cache
	Limit   int
	Log     logrus.FieldLogger
	now     func() time.Time
}

// NewCollector creates a new Collector. A nil cache disables caching.
func NewCollector(fetcher Fetcher, c cache.Cache, limit int, log logrus.FieldLogger) *Collector {
	if c == nil {
		c = cache.NewNoopCache()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Collector{Fetcher: fetcher, Cache: c, Limit: limit, Log: log, now: time.Now}
}

// Collect fetches bars and contract context for one pair.
// Ticker, funding and open interest failures are logged and left at their zero value.
// When the kline fetch fails, the cached bars are returned instead.
func (c *Collector) Collect(ctx context.Context, symbol, timeframe string) (*model.MarketSeries, error) {
	if _, ok := model.TimeframeDuration(timeframe); !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	name := NormalizeSymbol(symbol)
	exSymbol := ExchangeSymbol(symbol)
	log := c.Log.WithFields(logrus.Fields{"symbol": name, "timeframe": timeframe, "source": c.Fetcher.Name()})

	bars, err := c.Fetcher.FetchKlines(ctx, exSymbol, timeframe, c.Limit)
	if err == nil {
		bars = cleanBars(bars)
	}
	if err != nil || len(bars) == 0 {
		cached, cerr := c.Cache.Load(name, timeframe, c.Limit)
		if cerr == nil {
			log.WithError(err).WithField("bars", cached.Len()).Warn("kline fetch failed, using cached bars")
			return cached, nil
		}
		if !errors.Is(cerr, cache.ErrMiss) {
			log.WithError(cerr).Warn("cache load failed")
		}
		if err != nil {
			return nil, fmt.Errorf("collect %s %s: %w", name, timeframe, err)
		}
		return nil, fmt.Errorf("collect %s %s: %w", name, timeframe, ErrNoBars)
	}

	series := &model.MarketSeries{
		Symbol:    name,
		Timeframe: timeframe,
		Exchange:  c.Fetcher.Name(),
		Bars:      bars,
	}

	var g errgroup.Group
	g.Go(func() error {
		rate, err := c.Fetcher.FetchFundingRate(ctx, exSymbol)
		if err != nil {
			log.WithError(err).Warn("funding rate unavailable, using 0")
			return nil
		}
		series.FundingRate = rate
		return nil
	})
	g.Go(func() error {
		oi, err := c.Fetcher.FetchOpenInterest(ctx, exSymbol)
		if err != nil {
			log.WithError(err).Warn("open interest unavailable, using 0")
			return nil
		}
		series.OpenInterest = oi
		return nil
	})
	g.Go(func() error {
		t, err := c.Fetcher.FetchTicker(ctx, exSymbol)
		if err != nil {
			log.WithError(err).Warn("spot ticker unavailable")
			return nil
		}
		series.Spot = t
		return nil
	})
	_ = g.Wait()

	series.FetchedAt = c.now().UTC()

	if err := c.Cache.Save(series); err != nil {
		log.WithError(err).Warn("cache save failed")
	}
	log.WithFields(logrus.Fields{"bars": series.Len(), "funding_rate": series.FundingRate}).Debug("market data collected")
	return series, nil
}

// cleanBars sorts bars chronologically and keeps the last bar for each timestamp.
func cleanBars(bars []model.OHLCV) []model.OHLCV {
	if len(bars) == 0 {
		return bars
	}
	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := sorted[:0]
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
