/*
The collateral calculator answers the one question the engine exists
for: given a loan, how much collateral does it need right now.

All the arithmetic runs on integer base units. Token amounts enter at
their token's scale, USD values live at the canonical 18 decimal scale,
and ratios come out in basis points. Display strings are produced at
the very end from the integer results, never the other way around.

Missing inputs abort the assessment with an error. A stale price does
not: the assessment is still computed and flagged so the caller can
decide whether to trust it.
*/

package collateral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/tidelend/core/internal/bigmath"
	"github.com/tidelend/core/internal/fixedpoint"
	"github.com/tidelend/core/internal/logger"
	"github.com/tidelend/core/internal/policy"
	"github.com/tidelend/core/internal/pricefeed"
	"github.com/tidelend/core/internal/registry"
	"github.com/tidelend/core/internal/types"
	"github.com/tidelend/core/internal/validate"
)

var (
	ErrPriceUnavailable  = errors.New("price unavailable for assessment")
	ErrPolicyUnavailable = errors.New("risk parameters unavailable for pair")
	ErrInvalidAmount     = errors.New("invalid token amount")
)

// Calculator computes collateral assessments from live prices and risk policy.
type Calculator struct {
	logger zerolog.Logger
	prices *pricefeed.Cache
	tokens *registry.Registry
	policy policy.Source
}

// Config holds the dependencies for creating a new Calculator.
type Config struct {
	Prices *pricefeed.Cache
	Tokens *registry.Registry
	Policy policy.Source
}

func NewCalculator(cfg Config) (*Calculator, error) {
	if err := validateCalculatorConfig(cfg); err != nil {
		return nil, fmt.Errorf("calculator configuration validation failed: %w", err)
	}
	return &Calculator{
		logger: logger.GetForComponent("collateral_calculator"),
		prices: cfg.Prices,
		tokens: cfg.Tokens,
		policy: cfg.Policy,
	}, nil
}

func validateCalculatorConfig(cfg Config) error {
	if cfg.Prices == nil {
		return fmt.Errorf("price cache cannot be nil")
	}
	if cfg.Tokens == nil {
		return fmt.Errorf("token registry cannot be nil")
	}
	if cfg.Policy == nil {
		return fmt.Errorf("risk policy cannot be nil")
	}
	return nil
}

// AssessmentRequest describes one proposed position. Amounts are
// whole-token decimal strings, e.g. "1.5" WETH. CollateralAmount may be
// empty when the caller only wants the minimum requirement.
type AssessmentRequest struct {
	LoanSymbol       string
	CollateralSymbol string
	LoanAmount       string
	CollateralAmount string
}

// Assess evaluates a proposed position. Token lookups, amount validation
// and policy resolution all run before the price lookups, so a broken
// request fails on its own defects without ever triggering an upstream
// fetch; price availability errors carry the lowest precedence.
func (c *Calculator) Assess(ctx context.Context, req AssessmentRequest) (*types.CollateralAssessment, error) {
	loanToken, err := c.tokens.BySymbol(req.LoanSymbol)
	if err != nil {
		return nil, err
	}
	collateralToken, err := c.tokens.BySymbol(req.CollateralSymbol)
	if err != nil {
		return nil, err
	}

	loanAmount := strings.TrimSpace(req.LoanAmount)
	if !validate.IsCompleteDecimal(loanAmount) {
		return nil, fmt.Errorf("%w: loan amount %q", ErrInvalidAmount, req.LoanAmount)
	}
	loanRaw, err := fixedpoint.ToBaseUnit(loanAmount, loanToken.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: loan amount %q: %v", ErrInvalidAmount, req.LoanAmount, err)
	}

	collateralAmount := strings.TrimSpace(req.CollateralAmount)
	hasProposed := collateralAmount != ""
	collateralRaw := sdkmath.ZeroInt()
	if hasProposed {
		if !validate.IsCompleteDecimal(collateralAmount) {
			return nil, fmt.Errorf("%w: collateral amount %q", ErrInvalidAmount, req.CollateralAmount)
		}
		collateralRaw, err = fixedpoint.ToBaseUnit(collateralAmount, collateralToken.Decimals)
		if err != nil {
			return nil, fmt.Errorf("%w: collateral amount %q: %v", ErrInvalidAmount, req.CollateralAmount, err)
		}
	}

	params, err := c.policy.PairParams(ctx, loanToken, collateralToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicyUnavailable, err)
	}

	loanQuote, loanStatus := c.prices.Get(ctx, loanToken.FeedID)
	if !loanQuote.Success {
		return nil, fmt.Errorf("%w: %s: %s", ErrPriceUnavailable, loanToken.Symbol, loanQuote.Error)
	}
	collateralQuote, collateralStatus := c.prices.Get(ctx, collateralToken.FeedID)
	if !collateralQuote.Success {
		return nil, fmt.Errorf("%w: %s: %s", ErrPriceUnavailable, collateralToken.Symbol, collateralQuote.Error)
	}
	if !loanQuote.PriceRaw.IsPositive() || !collateralQuote.PriceRaw.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive quote for %s/%s", ErrPriceUnavailable, loanToken.Symbol, collateralToken.Symbol)
	}

	// Staleness is judged per pair: the pair's bound, not the cache default.
	stale := loanStatus.PriceAge > params.MaxPriceStaleness ||
		collateralStatus.PriceAge > params.MaxPriceStaleness

	loanValueUSD, err := bigmath.Multiply(
		loanRaw, loanQuote.PriceRaw,
		loanToken.Decimals, fixedpoint.CanonicalUSDScale, fixedpoint.CanonicalUSDScale,
	)
	if err != nil {
		return nil, fmt.Errorf("computing loan value: %w", err)
	}

	minCollateralValueUSD, err := bigmath.Percentage(loanValueUSD, params.MinCollateralRatioBPS, fixedpoint.CanonicalUSDScale)
	if err != nil {
		return nil, fmt.Errorf("computing minimum collateral value: %w", err)
	}

	minCollateralAmount, err := bigmath.Divide(
		minCollateralValueUSD, collateralQuote.PriceRaw,
		fixedpoint.CanonicalUSDScale, fixedpoint.CanonicalUSDScale, collateralToken.Decimals,
	)
	if err != nil {
		return nil, fmt.Errorf("computing minimum collateral amount: %w", err)
	}

	exchangeRate, err := bigmath.Divide(
		loanQuote.PriceRaw, collateralQuote.PriceRaw,
		fixedpoint.CanonicalUSDScale, fixedpoint.CanonicalUSDScale, collateralToken.Decimals,
	)
	if err != nil {
		return nil, fmt.Errorf("computing exchange rate: %w", err)
	}

	assessment := &types.CollateralAssessment{
		LoanSymbol:              loanToken.Symbol,
		CollateralSymbol:        collateralToken.Symbol,
		LoanValueUSD:            loanValueUSD,
		MinCollateralValueUSD:   minCollateralValueUSD,
		MinCollateralAmount:     minCollateralAmount,
		MinRatioBPS:             params.MinCollateralRatioBPS,
		LiquidationThresholdBPS: params.LiquidationThresholdBPS,
		HasProposedCollateral:   hasProposed,
		CollateralValueUSD:      sdkmath.ZeroInt(),
		CurrentRatioBPS:         sdkmath.ZeroInt(),
		ExchangeRate:            exchangeRate,
		PriceStale:              stale,

		LoanPricePublishTime:       loanQuote.PublishTime,
		CollateralPricePublishTime: collateralQuote.PublishTime,
	}

	if hasProposed {
		collateralValueUSD, err := bigmath.Multiply(
			collateralRaw, collateralQuote.PriceRaw,
			collateralToken.Decimals, fixedpoint.CanonicalUSDScale, fixedpoint.CanonicalUSDScale,
		)
		if err != nil {
			return nil, fmt.Errorf("computing collateral value: %w", err)
		}

		// Ratio yields 0 when the loan value is 0, so a collateralized
		// zero-value loan reads as unhealthy rather than dividing by zero.
		currentRatio, err := bigmath.Ratio(
			collateralValueUSD, loanValueUSD,
			fixedpoint.CanonicalUSDScale, fixedpoint.CanonicalUSDScale,
		)
		if err != nil {
			return nil, fmt.Errorf("computing collateralization ratio: %w", err)
		}

		assessment.CollateralValueUSD = collateralValueUSD
		assessment.CurrentRatioBPS = currentRatio
		assessment.IsHealthy = currentRatio.GTE(sdkmath.NewIntFromUint64(params.MinCollateralRatioBPS))
	}

	assessment.MinCollateralFormatted = fixedpoint.FormatTokenAmount(minCollateralAmount, collateralToken.Decimals, collateralToken.Symbol)
	assessment.ExchangeRateFormatted = fixedpoint.FormatTokenAmount(exchangeRate, collateralToken.Decimals, collateralToken.Symbol)

	minValueUSD, err := fixedpoint.FromBaseUnit(minCollateralValueUSD, fixedpoint.CanonicalUSDScale)
	if err != nil {
		return nil, fmt.Errorf("formatting minimum collateral value: %w", err)
	}
	assessment.MinCollateralValueUSDFormatted = fixedpoint.FormatUSDValue(minValueUSD)

	if stale {
		c.logger.Warn().
			Str("loanSymbol", loanToken.Symbol).
			Str("collateralSymbol", collateralToken.Symbol).
			Dur("loanPriceAge", loanStatus.PriceAge).
			Dur("collateralPriceAge", collateralStatus.PriceAge).
			Dur("maxStaleness", params.MaxPriceStaleness).
			Msg("Assessment computed from stale prices")
	}

	c.logger.Debug().
		Str("loanSymbol", loanToken.Symbol).
		Str("collateralSymbol", collateralToken.Symbol).
		Str("loanValueUSD", loanValueUSD.String()).
		Str("minCollateralAmount", minCollateralAmount.String()).
		Bool("hasProposedCollateral", hasProposed).
		Bool("isHealthy", assessment.IsHealthy).
		Bool("priceStale", stale).
		Msg("Assessment computed")

	return assessment, nil
}

// ExchangeRate returns how many collateral base units one whole loan
// token buys at current prices.
func (c *Calculator) ExchangeRate(ctx context.Context, loanSymbol, collateralSymbol string) (sdkmath.Int, error) {
	loanToken, err := c.tokens.BySymbol(loanSymbol)
	if err != nil {
		return sdkmath.Int{}, err
	}
	collateralToken, err := c.tokens.BySymbol(collateralSymbol)
	if err != nil {
		return sdkmath.Int{}, err
	}

	loanQuote, _ := c.prices.Get(ctx, loanToken.FeedID)
	if !loanQuote.Success {
		return sdkmath.Int{}, fmt.Errorf("%w: %s: %s", ErrPriceUnavailable, loanToken.Symbol, loanQuote.Error)
	}
	collateralQuote, _ := c.prices.Get(ctx, collateralToken.FeedID)
	if !collateralQuote.Success {
		return sdkmath.Int{}, fmt.Errorf("%w: %s: %s", ErrPriceUnavailable, collateralToken.Symbol, collateralQuote.Error)
	}
	if !loanQuote.PriceRaw.IsPositive() || !collateralQuote.PriceRaw.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: non-positive quote for %s/%s", ErrPriceUnavailable, loanToken.Symbol, collateralToken.Symbol)
	}

	return bigmath.Divide(
		loanQuote.PriceRaw, collateralQuote.PriceRaw,
		fixedpoint.CanonicalUSDScale, fixedpoint.CanonicalUSDScale, collateralToken.Decimals,
	)
}
