package pricefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/tidelend/core/internal/fixedpoint"
	"github.com/tidelend/core/internal/types"
)

// StaticSource serves fixed prices from memory. It backs the static run
// mode and tests, nothing here ever touches the network.
type StaticSource struct {
	mu     sync.RWMutex
	quotes map[string]types.TokenPrice
}

func NewStaticSource() *StaticSource {
	return &StaticSource{
		quotes: make(map[string]types.TokenPrice),
	}
}

func (s *StaticSource) Name() string {
	return "static"
}

// SetPrice pins a feed to a human readable USD price, e.g. "2000.50".
func (s *StaticSource) SetPrice(feedID, priceUSD string) error {
	return s.SetPriceAt(feedID, priceUSD, time.Now().Unix())
}

func (s *StaticSource) SetPriceAt(feedID, priceUSD string, publishTime int64) error {
	priceRaw, err := fixedpoint.ToBaseUnit(priceUSD, fixedpoint.CanonicalUSDScale)
	if err != nil {
		return fmt.Errorf("static price for %s: %w", feedID, err)
	}
	if !priceRaw.IsPositive() {
		return fmt.Errorf("%w: static price for %s must be positive", ErrInvalidQuote, feedID)
	}
	if publishTime <= 0 {
		return fmt.Errorf("%w: publish time %d", ErrInvalidQuote, publishTime)
	}

	display, err := fixedpoint.FromBaseUnit(priceRaw, fixedpoint.CanonicalUSDScale)
	if err != nil {
		return fmt.Errorf("static price for %s: %w", feedID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[feedID] = types.TokenPrice{
		FeedID:      feedID,
		PriceUSD:    display,
		PriceRaw:    priceRaw,
		Confidence:  sdkmath.ZeroInt(),
		PublishTime: publishTime,
		Success:     true,
	}
	return nil
}

func (s *StaticSource) GetPrice(_ context.Context, feedID string) types.TokenPrice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, ok := s.quotes[feedID]
	if !ok {
		return types.FailedPrice(feedID, ErrFeedNotFound)
	}
	return quote
}

func (s *StaticSource) GetPrices(ctx context.Context, feedIDs []string) map[string]types.TokenPrice {
	quotes := make(map[string]types.TokenPrice, len(feedIDs))
	for _, feedID := range feedIDs {
		quotes[feedID] = s.GetPrice(ctx, feedID)
	}
	return quotes
}
