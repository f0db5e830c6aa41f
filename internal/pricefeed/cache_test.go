package pricefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tidelend/core/internal/types"
)

// fakeClock lets tests move cache time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// countingSource wraps a StaticSource and counts upstream calls per feed.
type countingSource struct {
	mu    sync.Mutex
	calls map[string]int
	inner *StaticSource
	fail  bool
}

func newCountingSource() *countingSource {
	return &countingSource{
		calls: make(map[string]int),
		inner: NewStaticSource(),
	}
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) setFailing(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *countingSource) callCount(feedID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[feedID]
}

func (s *countingSource) GetPrice(ctx context.Context, feedID string) types.TokenPrice {
	s.mu.Lock()
	s.calls[feedID]++
	failing := s.fail
	s.mu.Unlock()

	if failing {
		return types.FailedPrice(feedID, errors.New("upstream down"))
	}
	return s.inner.GetPrice(ctx, feedID)
}

func (s *countingSource) GetPrices(ctx context.Context, feedIDs []string) map[string]types.TokenPrice {
	quotes := make(map[string]types.TokenPrice, len(feedIDs))
	for _, feedID := range feedIDs {
		quotes[feedID] = s.GetPrice(ctx, feedID)
	}
	return quotes
}

func newTestCache(t *testing.T, source Source, clock *fakeClock, ttl, maxStaleness time.Duration) *Cache {
	t.Helper()
	cache, err := NewCache(source, Options{TTL: ttl, MaxStaleness: maxStaleness, Clock: clock.Now})
	require.NoError(t, err)
	return cache
}

func TestNewCacheValidation(t *testing.T) {
	_, err := NewCache(nil, Options{})
	require.Error(t, err)

	_, err = NewCache(NewStaticSource(), Options{TTL: -time.Second})
	require.Error(t, err)

	_, err = NewCache(NewStaticSource(), Options{MaxStaleness: -time.Second})
	require.Error(t, err)

	cache, err := NewCache(NewStaticSource(), Options{})
	require.NoError(t, err)
	require.Equal(t, DEFAULT_MAX_STALENESS, cache.MaxStaleness())
}

func TestCacheHitWithinTTL(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	source := newCountingSource()
	require.NoError(t, source.inner.SetPriceAt("0xfeed", "2000", clock.Now().Unix()))

	cache := newTestCache(t, source, clock, 30*time.Second, time.Minute)
	ctx := context.Background()

	quote, status := cache.Get(ctx, "0xfeed")
	require.True(t, quote.Success)
	require.Equal(t, "2000", quote.PriceUSD)
	require.False(t, status.Hit)
	require.False(t, status.Stale)
	require.Equal(t, 1, source.callCount("0xfeed"))

	clock.Advance(10 * time.Second)
	quote, status = cache.Get(ctx, "0xfeed")
	require.True(t, quote.Success)
	require.True(t, status.Hit)
	require.Equal(t, 10*time.Second, status.CacheAge)
	require.Equal(t, 10*time.Second, status.PriceAge)
	require.Equal(t, 1, source.callCount("0xfeed"), "fresh entry must not trigger a fetch")
}

func TestCacheRefetchAfterTTL(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	source := newCountingSource()
	require.NoError(t, source.inner.SetPriceAt("0xfeed", "2000", clock.Now().Unix()))

	cache := newTestCache(t, source, clock, 30*time.Second, time.Hour)
	ctx := context.Background()

	cache.Get(ctx, "0xfeed")
	clock.Advance(31 * time.Second)

	require.NoError(t, source.inner.SetPriceAt("0xfeed", "2100", clock.Now().Unix()))
	quote, status := cache.Get(ctx, "0xfeed")
	require.False(t, status.Hit)
	require.Equal(t, "2100", quote.PriceUSD)
	require.Equal(t, 2, source.callCount("0xfeed"))
}

func TestCacheStalenessIndependentOfTTL(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	source := newCountingSource()

	// Published ten minutes before the fetch: fresh in the cache,
	// stale by publish time.
	require.NoError(t, source.inner.SetPriceAt("0xfeed", "2000", clock.Now().Add(-10*time.Minute).Unix()))

	cache := newTestCache(t, source, clock, 30*time.Second, time.Minute)

	quote, status := cache.Get(context.Background(), "0xfeed")
	require.True(t, quote.Success)
	require.False(t, status.Hit)
	require.True(t, status.Stale)
	require.Equal(t, 10*time.Minute, status.PriceAge)
	require.Zero(t, status.CacheAge)
}

func TestCacheStatusAgreesWithQuoteStaleness(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	source := newCountingSource()
	cache := newTestCache(t, source, clock, 30*time.Second, time.Minute)
	ctx := context.Background()

	// One second past the bound is stale through both the status and the
	// quote's own Stale method; one second inside it is fresh through both.
	require.NoError(t, source.inner.SetPriceAt("0xold", "2000", clock.Now().Add(-61*time.Second).Unix()))
	quote, status := cache.Get(ctx, "0xold")
	require.True(t, status.Stale)
	require.Equal(t, quote.Stale(clock.Now(), cache.MaxStaleness()), status.Stale)

	require.NoError(t, source.inner.SetPriceAt("0xfresh", "2000", clock.Now().Add(-59*time.Second).Unix()))
	quote, status = cache.Get(ctx, "0xfresh")
	require.False(t, status.Stale)
	require.Equal(t, quote.Stale(clock.Now(), cache.MaxStaleness()), status.Stale)
}

func TestCacheFailedFetchNotCached(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	source := newCountingSource()
	source.setFailing(true)

	cache := newTestCache(t, source, clock, 30*time.Second, time.Minute)
	ctx := context.Background()

	quote, status := cache.Get(ctx, "0xfeed")
	require.False(t, quote.Success)
	require.False(t, status.Hit)
	require.Zero(t, cache.Size())

	// Recovery is immediate because the failure was never stored.
	source.setFailing(false)
	require.NoError(t, source.inner.SetPriceAt("0xfeed", "2000", clock.Now().Unix()))
	quote, _ = cache.Get(ctx, "0xfeed")
	require.True(t, quote.Success)
	require.Equal(t, 1, cache.Size())
}

func TestCacheServesLastKnownQuoteOnRefreshFailure(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	source := newCountingSource()
	require.NoError(t, source.inner.SetPriceAt("0xfeed", "2000", clock.Now().Unix()))

	cache := newTestCache(t, source, clock, 30*time.Second, time.Minute)
	ctx := context.Background()

	cache.Get(ctx, "0xfeed")

	clock.Advance(2 * time.Minute)
	source.setFailing(true)

	quote, status := cache.Get(ctx, "0xfeed")
	require.True(t, quote.Success, "old quote should be served when the refresh fails")
	require.Equal(t, "2000", quote.PriceUSD)
	require.False(t, status.Hit)
	require.True(t, status.Stale)
	require.Equal(t, 2*time.Minute, status.PriceAge)
}

func TestCacheSingleFlight(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	source := newCountingSource()
	require.NoError(t, source.inner.SetPriceAt("0xfeed", "2000", clock.Now().Unix()))

	cache := newTestCache(t, source, clock, 30*time.Second, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quote, _ := cache.Get(ctx, "0xfeed")
			require.True(t, quote.Success)
		}()
	}
	wg.Wait()

	// Late arrivals land on the freshly stored entry, early ones share
	// the in-flight fetch. Either way one upstream call suffices.
	require.Equal(t, 1, source.callCount("0xfeed"))
}

func TestCacheGetMany(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	source := newCountingSource()
	require.NoError(t, source.inner.SetPriceAt("0xa", "1", clock.Now().Unix()))
	require.NoError(t, source.inner.SetPriceAt("0xb", "2000", clock.Now().Unix()))

	cache := newTestCache(t, source, clock, 30*time.Second, time.Minute)
	ctx := context.Background()

	// Warm one feed, then batch over warm + cold + unknown.
	cache.Get(ctx, "0xa")
	quotes := cache.GetMany(ctx, []string{"0xa", "0xb", "0xmissing"})
	require.Len(t, quotes, 3)
	require.True(t, quotes["0xa"].Success)
	require.True(t, quotes["0xb"].Success)
	require.False(t, quotes["0xmissing"].Success)

	require.Equal(t, 1, source.callCount("0xa"), "warm feed must be served from cache")
	require.Equal(t, 1, source.callCount("0xb"))
	require.Equal(t, 2, cache.Size(), "the unknown feed must not be cached")
}

func TestCacheClear(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	source := newCountingSource()
	require.NoError(t, source.inner.SetPriceAt("0xfeed", "2000", clock.Now().Unix()))

	cache := newTestCache(t, source, clock, 30*time.Second, time.Minute)
	ctx := context.Background()

	cache.Get(ctx, "0xfeed")
	require.Equal(t, 1, cache.Size())

	cache.Clear()
	require.Zero(t, cache.Size())

	cache.Get(ctx, "0xfeed")
	require.Equal(t, 2, source.callCount("0xfeed"))
}
