package distancematrix

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
	"github.com/couchcryptid/trip-enrichment-etl/internal/observability"
)

// --- mocks for cache tests ---

type countingLookup struct {
	calls  int
	result domain.LookupResult
	err    error
}

func (m *countingLookup) Lookup(context.Context, domain.Coordinate, domain.Coordinate) (domain.LookupResult, error) {
	m.calls++
	return m.result, m.err
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (domain.LookupResult, bool, error) {
	return domain.LookupResult{}, false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, domain.LookupResult) error {
	return errors.New("connection refused")
}

func newCached(inner domain.RouteLookup, cache Cache) *CachedLookup {
	return NewCachedLookup(inner, cache, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

var okResult = domain.LookupResult{Status: "OK", DistanceText: "26.1 km", DurationText: "38 mins"}

// --- CachedLookup tests ---

func TestCachedLookup_Hit(t *testing.T) {
	inner := &countingLookup{result: okResult}
	cached := newCached(inner, NewLRU(10))

	r1, err := cached.Lookup(context.Background(), midtown, jfk)
	require.NoError(t, err)
	r2, err := cached.Lookup(context.Background(), midtown, jfk)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(cached.metrics.LookupCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(cached.metrics.LookupCache.WithLabelValues("miss")))
}

func TestCachedLookup_DirectionMatters(t *testing.T) {
	inner := &countingLookup{result: okResult}
	cached := newCached(inner, NewLRU(10))

	_, _ = cached.Lookup(context.Background(), midtown, jfk)
	_, _ = cached.Lookup(context.Background(), jfk, midtown)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedLookup_NonOKNotCached(t *testing.T) {
	inner := &countingLookup{result: domain.LookupResult{Status: "OVER_QUERY_LIMIT"}}
	lru := NewLRU(10)
	cached := newCached(inner, lru)

	_, _ = cached.Lookup(context.Background(), midtown, jfk)
	_, _ = cached.Lookup(context.Background(), midtown, jfk)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, lru.Len())
}

func TestCachedLookup_ErrorPassedThrough(t *testing.T) {
	inner := &countingLookup{err: domain.ErrMalformedResponse}
	cached := newCached(inner, NewLRU(10))

	_, err := cached.Lookup(context.Background(), midtown, jfk)
	require.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestCachedLookup_BrokenCacheFallsThrough(t *testing.T) {
	inner := &countingLookup{result: okResult}
	cached := newCached(inner, brokenCache{})

	result, err := cached.Lookup(context.Background(), midtown, jfk)
	require.NoError(t, err)
	assert.Equal(t, okResult, result)
	assert.Equal(t, 1, inner.calls)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "40.754900,-73.984000|40.644537,-73.783260", Key(midtown, jfk))
}

// --- LRU unit tests ---

func lruGet(t *testing.T, c *LRU, key string) (domain.LookupResult, bool) {
	t.Helper()
	r, ok, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	return r, ok
}

func lruSet(t *testing.T, c *LRU, key, distance string) {
	t.Helper()
	require.NoError(t, c.Set(context.Background(), key, domain.LookupResult{Status: "OK", DistanceText: distance}))
}

func TestLRU_BasicGetSet(t *testing.T) {
	c := NewLRU(3)
	lruSet(t, c, "a", "1 km")
	lruSet(t, c, "b", "2 km")

	result, ok := lruGet(t, c, "a")
	assert.True(t, ok)
	assert.Equal(t, "1 km", result.DistanceText)

	_, ok = lruGet(t, c, "missing")
	assert.False(t, ok)
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU(2)
	lruSet(t, c, "a", "1 km")
	lruSet(t, c, "b", "2 km")
	lruSet(t, c, "c", "3 km") // evicts "a"

	_, ok := lruGet(t, c, "a")
	assert.False(t, ok, "a should have been evicted")
	_, ok = lruGet(t, c, "b")
	assert.True(t, ok)
	_, ok = lruGet(t, c, "c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_AccessPromotesEntry(t *testing.T) {
	c := NewLRU(2)
	lruSet(t, c, "a", "1 km")
	lruSet(t, c, "b", "2 km")

	lruGet(t, c, "a")
	lruSet(t, c, "c", "3 km")

	_, ok := lruGet(t, c, "a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")
	_, ok = lruGet(t, c, "b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := NewLRU(2)
	lruSet(t, c, "a", "1 km")
	lruSet(t, c, "a", "1.5 km")

	result, ok := lruGet(t, c, "a")
	assert.True(t, ok)
	assert.Equal(t, "1.5 km", result.DistanceText)
	assert.Equal(t, 1, c.Len())
}
