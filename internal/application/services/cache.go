package services

import (
	"container/list"
	"context"
	"crypto/md5"
	"encoding/hex"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/adapters/metrics"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

// Probabilities of keeping a disk entry during cleanup, by age bracket.
// Entries older than a week are always removed.
const (
	cleanupWeekCutoff = 7 * 24 * time.Hour
	cleanupOldCutoff  = 3 * 24 * time.Hour
	cleanupDayCutoff  = 24 * time.Hour
	keepOldProbability = 0.7
	keepDayProbability = 0.9
)

type cacheEntry struct {
	hash     string
	analysis *models.SemanticAnalysis
	storedAt time.Time
}

// AnalysisCache memoizes per-message semantic analysis in two tiers: an
// in-memory LRU for the hot path and a disk store that survives restarts.
// Keys are content hashes, so capitalization and whitespace changes still
// hit the same entry.
type AnalysisCache struct {
	disk       ports.AnalysisCacheStore
	maxEntries int
	ttl        time.Duration

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	hits    int64
	misses  int64

	// randFloat is swapped in tests to make probabilistic cleanup deterministic.
	randFloat func() float64
}

func NewAnalysisCache(
	disk ports.AnalysisCacheStore,
	maxEntries int,
	ttl time.Duration,
) *AnalysisCache {
	return &AnalysisCache{
		disk:       disk,
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		randFloat:  rand.Float64,
	}
}

// Key derives the cache key for a message: an MD5 over the lowercased,
// whitespace-normalized text.
func (c *AnalysisCache) Key(message string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(message)), " ")
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached analysis for a message, or nil on a miss. Memory
// hits refresh recency; disk hits are promoted back into memory. Entries
// older than the TTL are discarded on sight.
func (c *AnalysisCache) Get(ctx context.Context, message string) *models.SemanticAnalysis {
	hash := c.Key(message)
	now := time.Now()

	c.mu.Lock()
	if elem, ok := c.entries[hash]; ok {
		entry := elem.Value.(*cacheEntry)
		if now.Sub(entry.storedAt) <= c.ttl {
			c.order.MoveToFront(elem)
			c.hits++
			c.mu.Unlock()
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			return entry.analysis
		}
		c.removeLocked(elem)
	}
	c.mu.Unlock()

	analysis, storedAt, err := c.disk.Get(ctx, hash)
	if err == nil && now.Sub(storedAt) <= c.ttl {
		c.mu.Lock()
		c.insertLocked(&cacheEntry{hash: hash, analysis: analysis, storedAt: storedAt})
		c.hits++
		c.mu.Unlock()
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return analysis
	}
	if err == nil {
		// Stale on disk: unlink so the next miss does not re-read it.
		if derr := c.disk.Delete(ctx, hash); derr != nil {
			log.Warn().Err(derr).Str("hash", hash).Msg("removing expired cache entry failed")
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	return nil
}

// Put stores the analysis for a message in both tiers.
func (c *AnalysisCache) Put(ctx context.Context, message string, analysis *models.SemanticAnalysis) {
	if analysis == nil {
		return
	}
	hash := c.Key(message)
	now := time.Now()

	c.mu.Lock()
	if elem, ok := c.entries[hash]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.analysis = analysis
		entry.storedAt = now
		c.order.MoveToFront(elem)
	} else {
		c.insertLocked(&cacheEntry{hash: hash, analysis: analysis, storedAt: now})
	}
	c.mu.Unlock()

	if err := c.disk.Put(ctx, hash, analysis); err != nil {
		log.Warn().Err(err).Str("hash", hash).Msg("writing analysis cache entry failed")
	}
}

// insertLocked adds an entry at the front and evicts from the back past the
// capacity. Disk copies of evicted entries are kept; TTL reaps them.
func (c *AnalysisCache) insertLocked(entry *cacheEntry) {
	c.entries[entry.hash] = c.order.PushFront(entry)
	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}
	metrics.CacheEntries.Set(float64(c.order.Len()))
}

func (c *AnalysisCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	c.order.Remove(elem)
	delete(c.entries, entry.hash)
	metrics.CacheEntries.Set(float64(c.order.Len()))
}

// Cleanup expires the in-memory tier and probabilistically thins the disk
// tier: week-old entries always go, three-day-old entries survive with
// probability 0.7 and day-old ones with probability 0.9. Returns the number
// of disk entries removed.
func (c *AnalysisCache) Cleanup(ctx context.Context) (int, error) {
	now := time.Now()

	c.mu.Lock()
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*cacheEntry)
		if now.Sub(entry.storedAt) > c.ttl {
			c.removeLocked(elem)
		}
		elem = prev
	}
	c.mu.Unlock()

	infos, err := c.disk.Entries(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, info := range infos {
		age := now.Sub(info.StoredAt)
		keep := true
		switch {
		case age > cleanupWeekCutoff:
			keep = false
		case age > cleanupOldCutoff:
			keep = c.randFloat() < keepOldProbability
		case age > cleanupDayCutoff:
			keep = c.randFloat() < keepDayProbability
		}
		if keep {
			continue
		}
		if err := c.disk.Delete(ctx, info.Hash); err != nil {
			log.Warn().Err(err).Str("hash", info.Hash).Msg("cache cleanup delete failed")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("analysis cache cleaned up")
	}
	return removed, nil
}

// Stats returns hit/miss counters and the in-memory entry count.
func (c *AnalysisCache) Stats() ports.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := ports.CacheStats{
		Entries: c.order.Len(),
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}
