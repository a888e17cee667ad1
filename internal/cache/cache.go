package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"articleregistry/backend/internal/domain"
)

// StatisticsKey is the single cache entry for the sales dashboard.
const StatisticsKey = "sales_statistics"

type StatisticsCache interface {
	Get(ctx context.Context, key string) (*domain.SalesStatistics, bool, error)
	Set(ctx context.Context, key string, value *domain.SalesStatistics, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopStatisticsCache struct{}

func (NoopStatisticsCache) Get(_ context.Context, _ string) (*domain.SalesStatistics, bool, error) {
	return nil, false, nil
}

func (NoopStatisticsCache) Set(_ context.Context, _ string, _ *domain.SalesStatistics, _ time.Duration) error {
	return nil
}

func (NoopStatisticsCache) Invalidate(_ context.Context, _ string) error {
	return nil
}

// MemoryStatisticsCache keeps entries in process memory.
type MemoryStatisticsCache struct {
	items *gocache.Cache
}

func NewMemoryStatisticsCache(cleanupInterval time.Duration) *MemoryStatisticsCache {
	return &MemoryStatisticsCache{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (c *MemoryStatisticsCache) Get(_ context.Context, key string) (*domain.SalesStatistics, bool, error) {
	val, ok := c.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	stats, ok := val.(domain.SalesStatistics)
	if !ok {
		return nil, false, nil
	}
	stats = cloneStatistics(stats)
	return &stats, true, nil
}

func (c *MemoryStatisticsCache) Set(_ context.Context, key string, value *domain.SalesStatistics, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	c.items.Set(key, cloneStatistics(*value), ttl)
	return nil
}

func (c *MemoryStatisticsCache) Invalidate(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// cloneStatistics copies the map and slices so cached entries never share
// memory with values handed to callers.
func cloneStatistics(stats domain.SalesStatistics) domain.SalesStatistics {
	if stats.Revenue != nil {
		revenue := make(map[domain.Currency]float64, len(stats.Revenue))
		for currency, total := range stats.Revenue {
			revenue[currency] = total
		}
		stats.Revenue = revenue
	}
	stats.TopArticles = append([]domain.ArticleVolume(nil), stats.TopArticles...)
	stats.RecentSales = append([]domain.Sale(nil), stats.RecentSales...)
	return stats
}
