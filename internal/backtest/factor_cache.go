package backtest

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/keiba-analytics/internal/factor"
	"github.com/yourusername/keiba-analytics/internal/metrics"
	"github.com/yourusername/keiba-analytics/internal/models"
)

// factorCacheTTL bounds entry lifetime between retrains; the cache is also
// cleared explicitly on every retrain.
const factorCacheTTL = 30 * time.Minute

// cachedScore wraps a computed score so "computed and missing" caches too.
type cachedScore struct {
	Score *float64
}

// FactorCache memoizes factor computations across the thousands of
// (horse, history) pairs a walk-forward run revisits.
type FactorCache struct {
	mu     sync.Mutex
	cache  *cache.Cache
	hits   uint64
	misses uint64
}

// NewFactorCache creates an empty cache.
func NewFactorCache() *FactorCache {
	return &FactorCache{cache: cache.New(factorCacheTTL, 2*factorCacheTTL)}
}

// key builds a stable cache key over everything the score depends on.
func (fc *FactorCache) key(factorName, horseID string, pastRaceIDs []string, params string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", factorName, horseID, strings.Join(pastRaceIDs, ","), params)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (fc *FactorCache) get(key string) (*float64, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if v, found := fc.cache.Get(key); found {
		fc.hits++
		fc.updateHitRatio()
		return v.(cachedScore).Score, true
	}
	fc.misses++
	fc.updateHitRatio()
	return nil, false
}

func (fc *FactorCache) set(key string, score *float64) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.cache.Set(key, cachedScore{Score: score}, cache.DefaultExpiration)
}

// Clear flushes entries and statistics. Called on every retrain.
func (fc *FactorCache) Clear() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.cache.Flush()
	fc.hits = 0
	fc.misses = 0
}

// Stats returns cache statistics
func (fc *FactorCache) Stats() (hits, misses uint64, ratio float64) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	hits = fc.hits
	misses = fc.misses
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (fc *FactorCache) updateHitRatio() {
	if total := fc.hits + fc.misses; total > 0 {
		metrics.FactorCacheHitRatio.Set(float64(fc.hits) / float64(total))
	}
}

// CachedCalculator computes factor score maps through the cache. The
// popularity factor reads per-race market data and is never cached.
type CachedCalculator struct {
	cache *FactorCache
}

// NewCachedCalculator wraps a cache.
func NewCachedCalculator(fc *FactorCache) *CachedCalculator {
	return &CachedCalculator{cache: fc}
}

// CalculateAll mirrors factor.CalculateAll with memoization.
func (cc *CachedCalculator) CalculateAll(horseID string, past []models.PastResult, fctx factor.Context) map[string]*float64 {
	pastRaceIDs := make([]string, len(past))
	for i, r := range past {
		pastRaceIDs[i] = r.RaceID
	}

	scores := make(map[string]*float64, len(factor.Names))
	for _, calc := range factor.All() {
		name := calc.Name()
		if name == factor.NamePopularity {
			scores[name] = runOne(calc, horseID, past, fctx)
			continue
		}

		key := cc.cache.key(name, horseID, pastRaceIDs, paramsFor(name, fctx))
		if score, found := cc.cache.get(key); found {
			scores[name] = score
			continue
		}
		score := runOne(calc, horseID, past, fctx)
		cc.cache.set(key, score)
		scores[name] = score
	}
	return scores
}

func runOne(calc factor.Calculator, horseID string, past []models.PastResult, fctx factor.Context) *float64 {
	if s, ok := calc.Calculate(horseID, past, fctx); ok {
		v := s
		return &v
	}
	return nil
}

// paramsFor names the context fields each factor's score depends on.
func paramsFor(name string, fctx factor.Context) string {
	switch name {
	case factor.NameCourseFit, factor.NameTimeIndex:
		return fmt.Sprintf("%s|%d", fctx.Surface, fctx.Distance)
	case factor.NamePedigree:
		return fmt.Sprintf("%s|%s|%d|%s", fctx.Sire, fctx.DamSire, fctx.Distance, fctx.TrackCondition)
	case factor.NameRunningStyle:
		return fmt.Sprintf("%s|%d", fctx.Venue, fctx.Distance)
	default:
		return ""
	}
}
