package datasource

import (
	"context"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/stock-prophet/internal/models"
)

// CachedPriceSource decorates a PriceSource with a short-lived in-memory
// cache. Shared series (the market index, sector ETFs) appear in every
// ticker's feature table; without the cache a multi-ticker run would fetch
// them once per ticker.
type CachedPriceSource struct {
	inner PriceSource
	cache *cache.Cache
}

// NewCachedPriceSource wraps src with a TTL cache.
func NewCachedPriceSource(src PriceSource, ttl time.Duration) *CachedPriceSource {
	return &CachedPriceSource{
		inner: src,
		cache: cache.New(ttl, ttl*2),
	}
}

// Name returns the name of the underlying data source
func (c *CachedPriceSource) Name() string { return c.inner.Name() }

// FetchDailyHistory returns cached bars when available, otherwise delegates.
// Errors are never cached.
func (c *CachedPriceSource) FetchDailyHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.Observation, error) {
	key := historyCacheKey(symbol, start, end)
	if cached, found := c.cache.Get(key); found {
		if bars, ok := cached.([]models.Observation); ok {
			return bars, nil
		}
	}

	bars, err := c.inner.FetchDailyHistory(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(key, bars)
	return bars, nil
}

// CachedEconomicSource decorates an EconomicSource the same way; the three
// macro series are identical for every ticker in a run.
type CachedEconomicSource struct {
	inner EconomicSource
	cache *cache.Cache
}

// NewCachedEconomicSource wraps src with a TTL cache.
func NewCachedEconomicSource(src EconomicSource, ttl time.Duration) *CachedEconomicSource {
	return &CachedEconomicSource{
		inner: src,
		cache: cache.New(ttl, ttl*2),
	}
}

// Name returns the name of the underlying data source
func (c *CachedEconomicSource) Name() string { return c.inner.Name() }

// FetchSeries returns cached points when available, otherwise delegates.
func (c *CachedEconomicSource) FetchSeries(ctx context.Context, seriesID string, start, end time.Time) ([]models.EconomicPoint, error) {
	key := historyCacheKey(seriesID, start, end)
	if cached, found := c.cache.Get(key); found {
		if points, ok := cached.([]models.EconomicPoint); ok {
			return points, nil
		}
	}

	points, err := c.inner.FetchSeries(ctx, seriesID, start, end)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(key, points)
	return points, nil
}

func historyCacheKey(id string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s", id, start.Format("2006-01-02"), end.Format("2006-01-02"))
}
