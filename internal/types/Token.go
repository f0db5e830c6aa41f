/*

Token metadata consumed across the lending core: the decimal scale every
base-unit conversion for the token uses, the price-feed identifier its quotes
are keyed by, and the volatility tier that drives default risk parameters.

*/

package types

import "time"

type Token struct {
	Symbol   string         `json:"symbol"`   // e.g., "WETH"
	Name     string         `json:"name"`     // e.g., "Wrapped Ether"
	Address  string         `json:"address"`  // e.g., "0xC02a...56Cc2"
	Decimals int            `json:"decimals"` // e.g., 18 (1000000000000000000 base units = 1 token)
	FeedID   string         `json:"feed_id"`  // price-feed identifier, e.g., a Pyth feed ID
	Tier     VolatilityTier `json:"tier"`     // e.g., "moderate"
}

// PriceData holds one historical price observation.
type PriceData struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}
