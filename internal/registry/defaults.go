/*
This file contains the built-in token listing for Ethereum mainnet.

Feed ids are Pyth price feed ids (the Crypto.X/USD feeds). When running
against DIA the feed id is swapped for the contract address at startup,
so keep the addresses here accurate too.

If a token isn't listed here it can still be registered at runtime, this
is just the set the engine ships with.
*/

package registry

import "github.com/tidelend/core/internal/types"

func DefaultTokens() []types.Token {
	return []types.Token{
		{
			Symbol:   "WETH",
			Name:     "Wrapped Ether",
			Address:  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			Decimals: 18,
			FeedID:   "0xff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
			Tier:     types.TierModerate,
		},
		{
			Symbol:   "WBTC",
			Name:     "Wrapped Bitcoin",
			Address:  "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
			Decimals: 8,
			FeedID:   "0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
			Tier:     types.TierModerate,
		},
		{
			Symbol:   "USDC",
			Name:     "USD Coin",
			Address:  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			Decimals: 6,
			FeedID:   "0xeaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a",
			Tier:     types.TierStable,
		},
		{
			Symbol:   "USDT",
			Name:     "Tether USD",
			Address:  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			Decimals: 6,
			FeedID:   "0x2b89b9dc8fdf9f34709a5b106b472f0f39bb6ca9ce04b0fd7f2e971688e2e53b",
			Tier:     types.TierStable,
		},
		{
			Symbol:   "DAI",
			Name:     "Dai Stablecoin",
			Address:  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
			Decimals: 18,
			FeedID:   "0xb0948a5e5313200c632b51bb5ca32f6de0d36e9950a942d19751e833f70dabfd",
			Tier:     types.TierStable,
		},
		{
			Symbol:   "LINK",
			Name:     "Chainlink",
			Address:  "0x514910771AF9Ca656af840dff83E8264EcF986CA",
			Decimals: 18,
			FeedID:   "0x8ac0c70fff57e9aefdf5edf44b51d62c2d433653cbb2cf5cc06bb115af04d221",
			Tier:     types.TierHigh,
		},
	}
}
