/*
The price cache sits between the assessment path and the upstream
source so a burst of requests doesn't turn into a burst of HTTP calls.

Two clocks matter here and they are kept apart on purpose. CacheAge is
how long ago WE fetched the quote, governed by the TTL. PriceAge is how
long ago the SOURCE published it, governed by the pair's staleness
bound. A quote can be freshly fetched and still stale if the upstream
itself has stopped publishing.

When a refresh fails and an older quote is still held, the older quote
is served with its real age so callers can apply their own staleness
policy. Failed fetches are never stored.
*/

package pricefeed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tidelend/core/internal/logger"
	"github.com/tidelend/core/internal/types"
)

const (
	DEFAULT_CACHE_TTL     = 30 * time.Second
	DEFAULT_MAX_STALENESS = 60 * time.Second
)

// Options configures a Cache. Zero values take the defaults above, the
// Clock is only ever overridden in tests.
type Options struct {
	TTL          time.Duration
	MaxStaleness time.Duration
	Clock        func() time.Time
}

type cacheEntry struct {
	quote     types.TokenPrice
	fetchedAt time.Time
}

type Cache struct {
	logger       zerolog.Logger
	source       Source
	ttl          time.Duration
	maxStaleness time.Duration
	clock        func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry

	flight singleflight.Group
}

// Status reports how a quote was served.
type Status struct {
	Hit      bool
	Stale    bool
	CacheAge time.Duration
	PriceAge time.Duration
}

func NewCache(source Source, opts Options) (*Cache, error) {
	if source == nil {
		return nil, errors.New("price source cannot be nil")
	}
	if opts.TTL < 0 {
		return nil, errors.New("cache TTL cannot be negative")
	}
	if opts.MaxStaleness < 0 {
		return nil, errors.New("max staleness cannot be negative")
	}

	if opts.TTL == 0 {
		opts.TTL = DEFAULT_CACHE_TTL
	}
	if opts.MaxStaleness == 0 {
		opts.MaxStaleness = DEFAULT_MAX_STALENESS
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	registerMetrics()

	return &Cache{
		logger:       logger.GetForComponent("price_cache"),
		source:       source,
		ttl:          opts.TTL,
		maxStaleness: opts.MaxStaleness,
		clock:        opts.Clock,
		entries:      make(map[string]cacheEntry),
	}, nil
}

// Get returns the cached quote for feedID, refreshing it from the
// source when the TTL has lapsed. Concurrent misses for the same feed
// share one upstream call.
func (c *Cache) Get(ctx context.Context, feedID string) (types.TokenPrice, Status) {
	now := c.clock()

	if entry, ok := c.lookup(feedID); ok && now.Sub(entry.fetchedAt) <= c.ttl {
		cacheHits.WithLabelValues(feedID).Inc()
		status := c.status(entry.quote, entry.fetchedAt, now, true)
		if status.Stale {
			staleServed.WithLabelValues(feedID).Inc()
		}
		return entry.quote, status
	}

	cacheMisses.WithLabelValues(feedID).Inc()

	fetched, _, _ := c.flight.Do(feedID, func() (interface{}, error) {
		// A queued waiter may find the entry already refreshed.
		if entry, ok := c.lookup(feedID); ok && c.clock().Sub(entry.fetchedAt) <= c.ttl {
			return entry.quote, nil
		}
		return c.refresh(ctx, feedID), nil
	})
	quote := fetched.(types.TokenPrice)

	now = c.clock()
	var fetchedAt time.Time
	if entry, ok := c.lookup(feedID); ok {
		fetchedAt = entry.fetchedAt
	}
	status := c.status(quote, fetchedAt, now, false)
	if quote.Success && status.Stale {
		staleServed.WithLabelValues(feedID).Inc()
	}
	return quote, status
}

// GetMany resolves a batch of feeds, going upstream once for all the
// feeds whose cached quote has expired.
func (c *Cache) GetMany(ctx context.Context, feedIDs []string) map[string]types.TokenPrice {
	quotes := make(map[string]types.TokenPrice, len(feedIDs))
	now := c.clock()

	var misses []string
	for _, feedID := range feedIDs {
		if entry, ok := c.lookup(feedID); ok && now.Sub(entry.fetchedAt) <= c.ttl {
			cacheHits.WithLabelValues(feedID).Inc()
			if c.status(entry.quote, entry.fetchedAt, now, true).Stale {
				staleServed.WithLabelValues(feedID).Inc()
			}
			quotes[feedID] = entry.quote
			continue
		}
		cacheMisses.WithLabelValues(feedID).Inc()
		misses = append(misses, feedID)
	}

	if len(misses) == 0 {
		return quotes
	}

	start := time.Now()
	refreshed := c.source.GetPrices(ctx, misses)
	fetchDuration.WithLabelValues(c.source.Name()).Observe(time.Since(start).Seconds())

	fetchedAt := c.clock()
	for _, feedID := range misses {
		quote, ok := refreshed[feedID]
		if !ok {
			quote = types.FailedPrice(feedID, ErrFeedNotFound)
		}
		if quote.Success {
			c.store(feedID, quote, fetchedAt)
			quotes[feedID] = quote
			continue
		}

		fetchErrors.WithLabelValues(feedID).Inc()
		if entry, held := c.lookup(feedID); held {
			c.logger.Warn().
				Str("feedID", feedID).
				Str("fetchError", quote.Error).
				Time("lastFetched", entry.fetchedAt).
				Msg("Refresh failed, serving last known quote")
			quotes[feedID] = entry.quote
			continue
		}
		quotes[feedID] = quote
	}

	return quotes
}

func (c *Cache) refresh(ctx context.Context, feedID string) types.TokenPrice {
	start := time.Now()
	quote := c.source.GetPrice(ctx, feedID)
	fetchDuration.WithLabelValues(c.source.Name()).Observe(time.Since(start).Seconds())

	if quote.Success {
		c.store(feedID, quote, c.clock())
		return quote
	}

	fetchErrors.WithLabelValues(feedID).Inc()
	if entry, ok := c.lookup(feedID); ok {
		c.logger.Warn().
			Str("feedID", feedID).
			Str("fetchError", quote.Error).
			Time("lastFetched", entry.fetchedAt).
			Msg("Refresh failed, serving last known quote")
		return entry.quote
	}
	return quote
}

func (c *Cache) lookup(feedID string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[feedID]
	return entry, ok
}

func (c *Cache) store(feedID string, quote types.TokenPrice, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[feedID] = cacheEntry{quote: quote, fetchedAt: fetchedAt}
}

func (c *Cache) status(quote types.TokenPrice, fetchedAt, now time.Time, hit bool) Status {
	status := Status{Hit: hit}
	if !fetchedAt.IsZero() {
		status.CacheAge = now.Sub(fetchedAt)
	}
	if quote.Success {
		if quote.PublishTime > 0 {
			status.PriceAge = now.Sub(time.Unix(quote.PublishTime, 0))
		}
		status.Stale = quote.Stale(now, c.maxStaleness)
	}
	return status
}

// MaxStaleness exposes the configured publish-time bound, callers that
// carry their own pair-level bound can ignore it.
func (c *Cache) MaxStaleness() time.Duration {
	return c.maxStaleness
}

// Clear drops every cached quote. The next lookup per feed goes upstream.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Size returns the number of feeds currently cached.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
