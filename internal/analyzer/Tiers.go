package analyzer

import "github.com/tidelend/core/internal/types"

// Annualized volatility boundaries for tier classification. Stablecoins
// hugging their peg land well under the stable bound; majors like BTC and ETH
// typically read between the two.
const (
	StableMaxVolatility   = 0.10
	ModerateMaxVolatility = 0.75
)

// ClassifyTier maps an annualized volatility reading onto the coarse risk
// tiers that drive default collateralization parameters. Readings that are
// not comparable (NaN) land in the high tier.
func ClassifyTier(volatility float64) types.VolatilityTier {
	switch {
	case volatility <= StableMaxVolatility:
		return types.TierStable
	case volatility <= ModerateMaxVolatility:
		return types.TierModerate
	default:
		return types.TierHigh
	}
}
