package payout

import (
	"context"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/keiba-analytics/internal/metrics"
	"github.com/yourusername/keiba-analytics/internal/models"
)

// negativeTTL caps how long an unsettled race stays cached so re-runs pick
// up payouts once they publish.
const negativeTTL = 10 * time.Minute

// bundleSource is the single page-level fetch the cache fronts.
type bundleSource interface {
	FetchBundle(ctx context.Context, raceID string) (*Bundle, error)
}

// CachedFetcher fronts a fetcher with a shared in-memory cache so the four
// ticket simulators settle a race with at most one page fetch.
type CachedFetcher struct {
	source bundleSource

	mu     sync.Mutex
	cache  *cache.Cache
	hits   uint64
	misses uint64
}

// NewCachedFetcher wraps a bundle source with a TTL cache.
func NewCachedFetcher(source bundleSource, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		source: source,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// getBundle returns the cached bundle for a race, fetching on miss.
// Unsettled races cache negatively with a shorter TTL.
func (c *CachedFetcher) getBundle(ctx context.Context, raceID string) (*Bundle, error) {
	c.mu.Lock()
	if v, found := c.cache.Get(raceID); found {
		c.hits++
		c.updateHitRatio()
		c.mu.Unlock()
		if v == nil {
			return nil, models.ErrNotYetSettled
		}
		return v.(*Bundle), nil
	}
	c.misses++
	c.updateHitRatio()
	c.mu.Unlock()

	bundle, err := c.source.FetchBundle(ctx, raceID)
	if err != nil {
		if err == models.ErrNotYetSettled {
			c.mu.Lock()
			c.cache.Set(raceID, nil, negativeTTL)
			c.mu.Unlock()
		}
		return nil, err
	}

	c.mu.Lock()
	c.cache.Set(raceID, bundle, cache.DefaultExpiration)
	c.mu.Unlock()
	return bundle, nil
}

// FetchPlacePayouts implements Fetcher.
func (c *CachedFetcher) FetchPlacePayouts(ctx context.Context, raceID string) ([]PlacePayout, error) {
	bundle, err := c.getBundle(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if len(bundle.Place) == 0 {
		return nil, models.ErrPayoutUnavailable
	}
	return bundle.Place, nil
}

// FetchWinPayout implements Fetcher.
func (c *CachedFetcher) FetchWinPayout(ctx context.Context, raceID string) (*WinPayout, error) {
	bundle, err := c.getBundle(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if bundle.Win == nil {
		return nil, models.ErrPayoutUnavailable
	}
	return bundle.Win, nil
}

// FetchQuinellaPayout implements Fetcher.
func (c *CachedFetcher) FetchQuinellaPayout(ctx context.Context, raceID string) (*QuinellaPayout, error) {
	bundle, err := c.getBundle(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if bundle.Quinella == nil {
		return nil, models.ErrPayoutUnavailable
	}
	return bundle.Quinella, nil
}

// FetchTrioPayout implements Fetcher.
func (c *CachedFetcher) FetchTrioPayout(ctx context.Context, raceID string) (*TrioPayout, error) {
	bundle, err := c.getBundle(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if bundle.Trio == nil {
		return nil, models.ErrPayoutUnavailable
	}
	return bundle.Trio, nil
}

// Stats returns cache statistics
func (c *CachedFetcher) Stats() (hits, misses uint64, ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hits = c.hits
	misses = c.misses
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (c *CachedFetcher) updateHitRatio() {
	if total := c.hits + c.misses; total > 0 {
		metrics.PayoutCacheHitRatio.Set(float64(c.hits) / float64(total))
	}
}
