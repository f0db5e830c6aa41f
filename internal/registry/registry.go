/*
The registry is the in-memory directory of tokens the engine knows about.

Lookups are served by symbol or by contract address. Symbols are stored
uppercased and addresses lowercased so callers don't have to care about
input casing.
*/

package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tidelend/core/internal/fixedpoint"
	"github.com/tidelend/core/internal/types"
)

var (
	ErrUnknownToken = errors.New("token not found in registry")
	ErrInvalidToken = errors.New("invalid token definition")
)

type Registry struct {
	mu        sync.RWMutex
	bySymbol  map[string]types.Token
	byAddress map[string]types.Token
}

func NewRegistry() *Registry {
	return &Registry{
		bySymbol:  make(map[string]types.Token),
		byAddress: make(map[string]types.Token),
	}
}

// NewDefaultRegistry returns a registry preloaded with the built-in token list.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, token := range DefaultTokens() {
		if err := r.Register(token); err != nil {
			return nil, fmt.Errorf("registering default token %s: %w", token.Symbol, err)
		}
	}
	return r, nil
}

// Register adds a token, replacing any previous entry with the same symbol.
func (r *Registry) Register(token types.Token) error {
	if strings.TrimSpace(token.Symbol) == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidToken)
	}
	if token.Decimals < 0 || token.Decimals > fixedpoint.MaxSupportedScale {
		return fmt.Errorf("%w: %s has unsupported decimals %d", ErrInvalidToken, token.Symbol, token.Decimals)
	}
	if strings.TrimSpace(token.FeedID) == "" {
		return fmt.Errorf("%w: %s has no price feed id", ErrInvalidToken, token.Symbol)
	}
	if _, ok := types.TierDefaults(token.Tier); !ok {
		return fmt.Errorf("%w: %s has unknown volatility tier %q", ErrInvalidToken, token.Symbol, token.Tier)
	}

	symbol := strings.ToUpper(strings.TrimSpace(token.Symbol))
	token.Symbol = symbol

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-registering under a new address must not leave the old address resolvable.
	if previous, ok := r.bySymbol[symbol]; ok && previous.Address != "" {
		delete(r.byAddress, strings.ToLower(previous.Address))
	}

	r.bySymbol[symbol] = token
	if token.Address != "" {
		r.byAddress[strings.ToLower(token.Address)] = token
	}
	return nil
}

// SetTier moves a registered token to another volatility tier.
func (r *Registry) SetTier(symbol string, tier types.VolatilityTier) error {
	if _, ok := types.TierDefaults(tier); !ok {
		return fmt.Errorf("%w: unknown volatility tier %q", ErrInvalidToken, tier)
	}
	key := strings.ToUpper(strings.TrimSpace(symbol))

	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.bySymbol[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	token.Tier = tier
	r.bySymbol[key] = token
	if token.Address != "" {
		r.byAddress[strings.ToLower(token.Address)] = token
	}
	return nil
}

func (r *Registry) BySymbol(symbol string) (types.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return types.Token{}, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	return token, nil
}

func (r *Registry) ByAddress(address string) (types.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.byAddress[strings.ToLower(strings.TrimSpace(address))]
	if !ok {
		return types.Token{}, fmt.Errorf("%w: %s", ErrUnknownToken, address)
	}
	return token, nil
}

// Tokens returns every registered token sorted by symbol.
func (r *Registry) Tokens() []types.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]types.Token, 0, len(r.bySymbol))
	for _, token := range r.bySymbol {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Symbol < tokens[j].Symbol
	})
	return tokens
}

// FeedIDs returns the deduplicated, sorted set of price feed ids across all tokens.
func (r *Registry) FeedIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.bySymbol))
	feedIDs := make([]string, 0, len(r.bySymbol))
	for _, token := range r.bySymbol {
		if _, ok := seen[token.FeedID]; ok {
			continue
		}
		seen[token.FeedID] = struct{}{}
		feedIDs = append(feedIDs, token.FeedID)
	}
	sort.Strings(feedIDs)
	return feedIDs
}
