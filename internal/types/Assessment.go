/*

The result of evaluating a proposed loan position. Assessments are recomputed
for every request and never stored; raw fields carry base units at explicit
scales, formatted fields are for human display only.

*/

package types

import sdkmath "cosmossdk.io/math"

type CollateralAssessment struct {
	LoanSymbol       string `json:"loan_symbol"`
	CollateralSymbol string `json:"collateral_symbol"`

	// USD values at the canonical 18-decimal scale.
	LoanValueUSD          sdkmath.Int `json:"loan_value_usd"`
	MinCollateralValueUSD sdkmath.Int `json:"min_collateral_value_usd"`

	// MinCollateralAmount is in collateral-token base units.
	MinCollateralAmount            sdkmath.Int `json:"min_collateral_amount"`
	MinCollateralFormatted         string      `json:"min_collateral_formatted"`           // e.g., "4500 USDC"
	MinCollateralValueUSDFormatted string      `json:"min_collateral_value_usd_formatted"` // e.g., "$4,500.00"

	MinRatioBPS             uint64 `json:"min_ratio_bps"`
	LiquidationThresholdBPS uint64 `json:"liquidation_threshold_bps"`

	// Populated only when the request proposed a collateral amount.
	HasProposedCollateral bool        `json:"has_proposed_collateral"`
	CollateralValueUSD    sdkmath.Int `json:"collateral_value_usd"`
	CurrentRatioBPS       sdkmath.Int `json:"current_ratio_bps"`
	IsHealthy             bool        `json:"is_healthy"`

	// ExchangeRate is collateral base units per 1 whole loan token.
	ExchangeRate          sdkmath.Int `json:"exchange_rate"`
	ExchangeRateFormatted string      `json:"exchange_rate_formatted"`

	// A stale quote still produces an assessment; the flag lets callers show
	// "proceed with caution" instead of silently trusting an old price.
	PriceStale                 bool  `json:"price_stale"`
	LoanPricePublishTime       int64 `json:"loan_price_publish_time"`
	CollateralPricePublishTime int64 `json:"collateral_price_publish_time"`
}
