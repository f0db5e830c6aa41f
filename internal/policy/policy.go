/*
Policy resolves the risk parameters for a loan/collateral pair.

The default policy derives parameters from the volatility tiers of the
two tokens and always takes the stricter side: the higher collateral
ratio wins and the shorter staleness window wins. Specific pairs can be
pinned with overrides, which beat the tier derivation entirely.
*/

package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tidelend/core/internal/types"
)

var ErrMissingTier = errors.New("no risk parameters for volatility tier")

// Source yields the risk parameters governing a loan/collateral pair.
type Source interface {
	PairParams(ctx context.Context, loan, collateral types.Token) (types.PairRiskParams, error)
}

type pairKey struct {
	loan       string
	collateral string
}

// TierPolicy is the default Source. Safe for concurrent use.
type TierPolicy struct {
	mu        sync.RWMutex
	overrides map[pairKey]types.PairRiskParams
}

func NewTierPolicy() *TierPolicy {
	return &TierPolicy{
		overrides: make(map[pairKey]types.PairRiskParams),
	}
}

// SetOverride pins the parameters for one direction of a pair. An override
// for lending WETH against USDC does not apply to lending USDC against WETH.
func (p *TierPolicy) SetOverride(loanSymbol, collateralSymbol string, params types.PairRiskParams) {
	key := pairKey{
		loan:       strings.ToUpper(strings.TrimSpace(loanSymbol)),
		collateral: strings.ToUpper(strings.TrimSpace(collateralSymbol)),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides[key] = params
}

func (p *TierPolicy) PairParams(_ context.Context, loan, collateral types.Token) (types.PairRiskParams, error) {
	key := pairKey{
		loan:       strings.ToUpper(loan.Symbol),
		collateral: strings.ToUpper(collateral.Symbol),
	}

	p.mu.RLock()
	params, ok := p.overrides[key]
	p.mu.RUnlock()
	if ok {
		return params, nil
	}

	loanParams, ok := types.TierDefaults(loan.Tier)
	if !ok {
		return types.PairRiskParams{}, fmt.Errorf("%w: %s is %q", ErrMissingTier, loan.Symbol, loan.Tier)
	}
	collateralParams, ok := types.TierDefaults(collateral.Tier)
	if !ok {
		return types.PairRiskParams{}, fmt.Errorf("%w: %s is %q", ErrMissingTier, collateral.Symbol, collateral.Tier)
	}

	return types.MergeConservative(loanParams, collateralParams), nil
}
