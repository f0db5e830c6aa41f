/*

Volatility tiers and the collateralization parameters they imply. The default
tables are conservative by construction; when a pair of tokens spans two
tiers, the stricter side of every field wins.

*/

package types

import "time"

type VolatilityTier string

const (
	TierStable   VolatilityTier = "stable"
	TierModerate VolatilityTier = "moderate"
	TierHigh     VolatilityTier = "high"
)

// PairRiskParams are the collateralization parameters applied to a
// (loan token, collateral token) pair. Ratios and thresholds are basis
// points where 10000 = 100%.
type PairRiskParams struct {
	MinCollateralRatioBPS   uint64        `json:"min_collateral_ratio_bps"`   // e.g., 15000 = 150%
	LiquidationThresholdBPS uint64        `json:"liquidation_threshold_bps"`  // e.g., 12000 = 120%
	MaxPriceStaleness       time.Duration `json:"max_price_staleness"`        // quotes older than this mark the assessment stale
}

// TierDefaults returns the built-in parameters for a volatility tier. The
// second return is false for unknown or empty tiers; callers must treat that
// as "cannot assess", never fall back to a default.
func TierDefaults(tier VolatilityTier) (PairRiskParams, bool) {
	switch tier {
	case TierStable:
		return PairRiskParams{
			MinCollateralRatioBPS:   15_000,
			LiquidationThresholdBPS: 12_000,
			MaxPriceStaleness:       time.Hour,
		}, true
	case TierModerate:
		return PairRiskParams{
			MinCollateralRatioBPS:   16_500,
			LiquidationThresholdBPS: 13_000,
			MaxPriceStaleness:       time.Hour,
		}, true
	case TierHigh:
		return PairRiskParams{
			MinCollateralRatioBPS:   18_000,
			LiquidationThresholdBPS: 14_000,
			MaxPriceStaleness:       30 * time.Minute,
		}, true
	}
	return PairRiskParams{}, false
}

// MergeConservative combines two parameter sets by taking the stricter side
// of each field: the higher ratios and the shorter staleness window.
func MergeConservative(a, b PairRiskParams) PairRiskParams {
	merged := a
	if b.MinCollateralRatioBPS > merged.MinCollateralRatioBPS {
		merged.MinCollateralRatioBPS = b.MinCollateralRatioBPS
	}
	if b.LiquidationThresholdBPS > merged.LiquidationThresholdBPS {
		merged.LiquidationThresholdBPS = b.LiquidationThresholdBPS
	}
	if b.MaxPriceStaleness < merged.MaxPriceStaleness {
		merged.MaxPriceStaleness = b.MaxPriceStaleness
	}
	return merged
}
