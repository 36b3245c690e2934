package benchmark

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/bobmcallan/navboard/internal/models"
)

type cacheEntry struct {
	points  []models.ValuationPoint
	fetched time.Time
}

// CachedClient decorates a BenchmarkClient with a TTL cache keyed by
// index and date range. Errors are never cached.
type CachedClient struct {
	inner interfaces.BenchmarkClient
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCachedClient wraps inner. A ttl of zero uses common.FreshnessBenchmark.
func NewCachedClient(inner interfaces.BenchmarkClient, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = common.FreshnessBenchmark
	}
	return &CachedClient{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(index string, start, end time.Time) string {
	return index + "|" + start.UTC().Format(models.DateLayout) + "|" + end.UTC().Format(models.DateLayout)
}

func (c *CachedClient) GetBenchmarkSeries(ctx context.Context, index string, start, end time.Time) ([]models.ValuationPoint, error) {
	key := cacheKey(index, start, end)

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && common.IsFresh(entry.fetched, c.ttl) {
		return clonePoints(entry.points), nil
	}

	points, err := c.inner.GetBenchmarkSeries(ctx, index, start, end)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{points: clonePoints(points), fetched: time.Now()}
	c.mu.Unlock()

	return points, nil
}

// Purge drops every cached entry.
func (c *CachedClient) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func clonePoints(points []models.ValuationPoint) []models.ValuationPoint {
	out := make([]models.ValuationPoint, len(points))
	copy(out, points)
	return out
}

// Compile-time check
var _ interfaces.BenchmarkClient = (*CachedClient)(nil)
