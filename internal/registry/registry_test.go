package registry

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tidelend/core/internal/types"
)

func testToken() types.Token {
	return types.Token{
		Symbol:   "WETH",
		Name:     "Wrapped Ether",
		Address:  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		Decimals: 18,
		FeedID:   "0xff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
		Tier:     types.TierModerate,
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testToken()))

	t.Run("symbol lookup is case insensitive", func(t *testing.T) {
		for _, query := range []string{"WETH", "weth", " Weth "} {
			token, err := r.BySymbol(query)
			require.NoError(t, err)
			require.Equal(t, "WETH", token.Symbol)
		}
	})

	t.Run("address lookup is case insensitive", func(t *testing.T) {
		token, err := r.ByAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
		require.NoError(t, err)
		require.Equal(t, "WETH", token.Symbol)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := r.BySymbol("DOGE")
		require.ErrorIs(t, err, ErrUnknownToken)

		_, err = r.ByAddress("0x0000000000000000000000000000000000000000")
		require.ErrorIs(t, err, ErrUnknownToken)
	})
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()

	noSymbol := testToken()
	noSymbol.Symbol = "  "
	require.ErrorIs(t, r.Register(noSymbol), ErrInvalidToken)

	badDecimals := testToken()
	badDecimals.Decimals = 37
	require.ErrorIs(t, r.Register(badDecimals), ErrInvalidToken)

	negDecimals := testToken()
	negDecimals.Decimals = -1
	require.ErrorIs(t, r.Register(negDecimals), ErrInvalidToken)

	noFeed := testToken()
	noFeed.FeedID = ""
	require.ErrorIs(t, r.Register(noFeed), ErrInvalidToken)

	badTier := testToken()
	badTier.Tier = "extreme"
	require.ErrorIs(t, r.Register(badTier), ErrInvalidToken)
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testToken()))

	// Re-register under a different address, as the DIA wiring does.
	updated := testToken()
	updated.Address = "0x0000000000000000000000000000000000000001"
	updated.FeedID = updated.Address
	require.NoError(t, r.Register(updated))

	token, err := r.BySymbol("WETH")
	require.NoError(t, err)
	require.Equal(t, updated.Address, token.Address)
	require.Equal(t, updated.Address, token.FeedID)

	// The old address must no longer resolve.
	_, err = r.ByAddress(testToken().Address)
	require.ErrorIs(t, err, ErrUnknownToken)

	_, err = r.ByAddress(updated.Address)
	require.NoError(t, err)

	require.Len(t, r.Tokens(), 1)
}

func TestSetTier(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testToken()))

	require.NoError(t, r.SetTier("weth", types.TierHigh))

	token, err := r.BySymbol("WETH")
	require.NoError(t, err)
	require.Equal(t, types.TierHigh, token.Tier)

	// The address index must see the same token.
	token, err = r.ByAddress(testToken().Address)
	require.NoError(t, err)
	require.Equal(t, types.TierHigh, token.Tier)

	require.ErrorIs(t, r.SetTier("DOGE", types.TierHigh), ErrUnknownToken)
	require.ErrorIs(t, r.SetTier("WETH", "extreme"), ErrInvalidToken)
}

func TestDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	tokens := r.Tokens()
	require.Len(t, tokens, 6)
	require.True(t, sort.SliceIsSorted(tokens, func(i, j int) bool {
		return tokens[i].Symbol < tokens[j].Symbol
	}))

	usdc, err := r.BySymbol("USDC")
	require.NoError(t, err)
	require.Equal(t, 6, usdc.Decimals)
	require.Equal(t, types.TierStable, usdc.Tier)

	weth, err := r.BySymbol("WETH")
	require.NoError(t, err)
	require.Equal(t, 18, weth.Decimals)

	feedIDs := r.FeedIDs()
	require.Len(t, feedIDs, 6)
	require.True(t, sort.StringsAreSorted(feedIDs))
}

func TestFeedIDsDeduplicated(t *testing.T) {
	r := NewRegistry()
	first := testToken()
	require.NoError(t, r.Register(first))

	second := testToken()
	second.Symbol = "ETH2"
	second.Address = ""
	require.NoError(t, r.Register(second))

	require.Len(t, r.FeedIDs(), 1)
}
