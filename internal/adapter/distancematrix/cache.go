package distancematrix

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
	"github.com/couchcryptid/trip-enrichment-etl/internal/observability"
)

// Cache stores lookup results by coordinate pair key.
type Cache interface {
	Get(ctx context.Context, key string) (domain.LookupResult, bool, error)
	Set(ctx context.Context, key string, result domain.LookupResult) error
}

// CachedLookup wraps a RouteLookup with a Cache.
type CachedLookup struct {
	inner   domain.RouteLookup
	cache   Cache
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedLookup creates a cache decorator around a lookup.
func NewCachedLookup(inner domain.RouteLookup, cache Cache, logger *slog.Logger, metrics *observability.Metrics) *CachedLookup {
	return &CachedLookup{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Key identifies a coordinate pair at six decimal places.
func Key(origin, destination domain.Coordinate) string {
	return origin.String() + "|" + destination.String()
}

// Lookup serves from the cache when possible. Cache failures degrade to a
// direct lookup.
func (c *CachedLookup) Lookup(ctx context.Context, origin, destination domain.Coordinate) (domain.LookupResult, error) {
	key := Key(origin, destination)

	result, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("lookup cache read failed", "key", key, "error", err)
	}
	if ok {
		c.metrics.LookupCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.LookupCache.WithLabelValues("miss").Inc()

	result, err = c.inner.Lookup(ctx, origin, destination)
	if err != nil {
		return result, err
	}
	// Only OK results are cached so failed statuses are retried on the next run.
	if result.Status == domain.StatusOK {
		if err := c.cache.Set(ctx, key, result); err != nil {
			c.logger.Warn("lookup cache write failed", "key", key, "error", err)
		}
	}
	return result, nil
}

// LRU is a thread-safe in-memory least-recently-used Cache.
type LRU struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.LookupResult
	prev  *entry
	next  *entry
}

// NewLRU creates an LRU holding at most maxEntries results.
func NewLRU(maxEntries int) *LRU {
	return &LRU{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

// Get implements Cache.
func (c *LRU) Get(_ context.Context, key string) (domain.LookupResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.LookupResult{}, false, nil
	}
	c.moveToFront(e)
	return e.value, true, nil
}

// Set implements Cache.
func (c *LRU) Set(_ context.Context, key string, value domain.LookupResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return nil
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	return nil
}

// Len returns the number of cached results.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRU) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *LRU) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRU) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *LRU) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
