// Package cache provides the in-memory tiered cache that sits in front of
// the Ghost Content API. Three pools with independent default TTLs keep
// volatile listings, general responses, and slow-changing metadata on
// separate freshness schedules.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twhitfield/ghost-discord-bot/internal/metrics"
)

// Pool identifies a cache partition with its own default TTL.
type Pool string

const (
	// PoolMain is the general-purpose default pool.
	PoolMain Pool = "main"
	// PoolShort holds volatile API listings.
	PoolShort Pool = "short"
	// PoolLong holds slow-changing metadata such as tags, authors,
	// site settings and the built search index.
	PoolLong Pool = "long"
)

const (
	DefaultMainTTL  = 10 * time.Minute
	DefaultShortTTL = 2 * time.Minute
	DefaultLongTTL  = 30 * time.Minute
)

// Janitor sweep intervals per pool. Expiry is always enforced at read
// time; the sweep only reclaims memory for keys nobody reads again.
const (
	mainSweepInterval  = time.Minute
	shortSweepInterval = 30 * time.Second
	longSweepInterval  = 5 * time.Minute
)

type entry struct {
	value     any
	expiresAt time.Time
}

type pool struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	hits       atomic.Uint64
	misses     atomic.Uint64
}

// Stats reports per-pool counters.
type Stats struct {
	Keys   int    `json:"keys"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Cache is the tiered in-memory cache. It is safe for concurrent use.
type Cache struct {
	pools map[Pool]*pool
	now   func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a Cache with the three standard pools and starts the
// background janitor. Call Close to stop the janitor.
func New() *Cache {
	c := &Cache{
		pools: map[Pool]*pool{
			PoolMain:  {entries: make(map[string]entry), defaultTTL: DefaultMainTTL},
			PoolShort: {entries: make(map[string]entry), defaultTTL: DefaultShortTTL},
			PoolLong:  {entries: make(map[string]entry), defaultTTL: DefaultLongTTL},
		},
		now:  time.Now,
		stop: make(chan struct{}),
	}

	go c.janitor(PoolMain, mainSweepInterval)
	go c.janitor(PoolShort, shortSweepInterval)
	go c.janitor(PoolLong, longSweepInterval)

	return c
}

// Close stops the janitor goroutines. Safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) pool(p Pool) *pool {
	if pl, ok := c.pools[p]; ok {
		return pl
	}
	return c.pools[PoolMain]
}

// Get returns the cached value for key in the given pool. Expired entries
// report a miss even if the janitor has not swept them yet.
func (c *Cache) Get(key string, p Pool) (any, bool) {
	pl := c.pool(p)

	pl.mu.RLock()
	e, ok := pl.entries[key]
	pl.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		pl.misses.Add(1)
		metrics.CacheMisses.WithLabelValues(string(p)).Inc()
		return nil, false
	}

	pl.hits.Add(1)
	metrics.CacheHits.WithLabelValues(string(p)).Inc()
	return e.value, true
}

// Set stores value under key with the pool's default TTL.
func (c *Cache) Set(key string, value any, p Pool) {
	c.SetTTL(key, value, 0, p)
}

// SetTTL stores value under key with an explicit TTL. A non-positive ttl
// falls back to the pool default.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration, p Pool) {
	pl := c.pool(p)
	if ttl <= 0 {
		ttl = pl.defaultTTL
	}

	pl.mu.Lock()
	pl.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	pl.mu.Unlock()
}

// Delete removes key from the given pool.
func (c *Cache) Delete(key string, p Pool) {
	pl := c.pool(p)
	pl.mu.Lock()
	delete(pl.entries, key)
	pl.mu.Unlock()
}

// Has reports whether key exists and has not expired.
func (c *Cache) Has(key string, p Pool) bool {
	pl := c.pool(p)
	pl.mu.RLock()
	e, ok := pl.entries[key]
	pl.mu.RUnlock()
	return ok && !c.now().After(e.expiresAt)
}

// Flush removes every entry from the given pool.
func (c *Cache) Flush(p Pool) {
	pl := c.pool(p)
	pl.mu.Lock()
	pl.entries = make(map[string]entry)
	pl.mu.Unlock()
	slog.Info("Cache pool cleared", "pool", string(p))
}

// FlushAll removes every entry from every pool.
func (c *Cache) FlushAll() {
	for p := range c.pools {
		pl := c.pools[p]
		pl.mu.Lock()
		pl.entries = make(map[string]entry)
		pl.mu.Unlock()
	}
	slog.Info("All cache pools cleared")
}

// GetStats returns per-pool key counts and hit/miss counters.
func (c *Cache) GetStats() map[Pool]Stats {
	stats := make(map[Pool]Stats, len(c.pools))
	for p, pl := range c.pools {
		pl.mu.RLock()
		keys := len(pl.entries)
		pl.mu.RUnlock()
		stats[p] = Stats{
			Keys:   keys,
			Hits:   pl.hits.Load(),
			Misses: pl.misses.Load(),
		}
	}
	return stats
}

func (c *Cache) janitor(p Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep(p)
		}
	}
}

func (c *Cache) sweep(p Pool) {
	pl := c.pool(p)
	now := c.now()

	pl.mu.Lock()
	for key, e := range pl.entries {
		if now.After(e.expiresAt) {
			delete(pl.entries, key)
		}
	}
	pl.mu.Unlock()
}
