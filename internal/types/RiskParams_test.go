package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTierDefaults(t *testing.T) {
	stable, ok := TierDefaults(TierStable)
	require.True(t, ok)
	require.Equal(t, uint64(15_000), stable.MinCollateralRatioBPS)
	require.Equal(t, uint64(12_000), stable.LiquidationThresholdBPS)
	require.Equal(t, time.Hour, stable.MaxPriceStaleness)

	high, ok := TierDefaults(TierHigh)
	require.True(t, ok)
	require.Equal(t, uint64(18_000), high.MinCollateralRatioBPS)
	require.Equal(t, 30*time.Minute, high.MaxPriceStaleness)

	_, ok = TierDefaults("")
	require.False(t, ok)
	_, ok = TierDefaults("extreme")
	require.False(t, ok)
}

func TestMergeConservative(t *testing.T) {
	stable, _ := TierDefaults(TierStable)
	high, _ := TierDefaults(TierHigh)

	merged := MergeConservative(stable, high)
	require.Equal(t, uint64(18_000), merged.MinCollateralRatioBPS)
	require.Equal(t, uint64(14_000), merged.LiquidationThresholdBPS)
	require.Equal(t, 30*time.Minute, merged.MaxPriceStaleness)

	// Order must not matter.
	require.Equal(t, merged, MergeConservative(high, stable))

	// Mixed strictness takes the stricter side per field, not per set.
	a := PairRiskParams{MinCollateralRatioBPS: 20_000, LiquidationThresholdBPS: 11_000, MaxPriceStaleness: 2 * time.Hour}
	b := PairRiskParams{MinCollateralRatioBPS: 12_000, LiquidationThresholdBPS: 15_000, MaxPriceStaleness: time.Minute}
	mixed := MergeConservative(a, b)
	require.Equal(t, uint64(20_000), mixed.MinCollateralRatioBPS)
	require.Equal(t, uint64(15_000), mixed.LiquidationThresholdBPS)
	require.Equal(t, time.Minute, mixed.MaxPriceStaleness)
}

func TestTokenPriceStale(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	fresh := TokenPrice{PublishTime: now.Add(-30 * time.Second).Unix()}
	require.False(t, fresh.Stale(now, time.Minute))

	old := TokenPrice{PublishTime: now.Add(-2 * time.Minute).Unix()}
	require.True(t, old.Stale(now, time.Minute))

	// Exactly at the boundary is not yet stale.
	edge := TokenPrice{PublishTime: now.Add(-time.Minute).Unix()}
	require.False(t, edge.Stale(now, time.Minute))

	// A quote with no publish time can never be trusted as fresh.
	require.True(t, TokenPrice{}.Stale(now, time.Minute))
}
