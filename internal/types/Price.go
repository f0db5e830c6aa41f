/*

Live price quotes as they travel between the price sources, the cache, and the
collateral calculator. A failed fetch is still a TokenPrice: failures surface
as Success=false data, never as a thrown error, so calculators can treat
"price unavailable" as an input state.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

type TokenPrice struct {
	FeedID      string      `json:"feed_id"`
	Symbol      string      `json:"symbol,omitempty"`
	PriceUSD    string      `json:"price_usd"`            // human string, e.g., "2000.25"
	PriceRaw    sdkmath.Int `json:"price_raw"`            // base units at the canonical 18-decimal USD scale
	Confidence  sdkmath.Int `json:"confidence"`           // +/- interval, same scale as PriceRaw
	PublishTime int64       `json:"publish_time"`         // unix seconds
	Success     bool        `json:"success"`
	Error       string      `json:"error,omitempty"`
}

// Stale reports whether the quote's publish time is older than maxAge.
// Staleness is a property of the price data itself and is independent of how
// long the quote has sat in a cache.
func (p TokenPrice) Stale(now time.Time, maxAge time.Duration) bool {
	if p.PublishTime <= 0 {
		return true
	}
	return now.Sub(time.Unix(p.PublishTime, 0)) > maxAge
}

// FailedPrice builds an error-flagged quote for a feed.
func FailedPrice(feedID string, err error) TokenPrice {
	return TokenPrice{
		FeedID:     feedID,
		PriceRaw:   sdkmath.ZeroInt(),
		Confidence: sdkmath.ZeroInt(),
		Success:    false,
		Error:      err.Error(),
	}
}
