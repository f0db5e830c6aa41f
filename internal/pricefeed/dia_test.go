package pricefeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const wethAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

func TestDIAGetPrice(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		// 1891.25 is exactly representable, the raw value below is exact.
		fmt.Fprint(w, `{"Symbol":"WETH","Name":"Wrapped Ether","Price":1891.25,"Time":"2023-11-14T22:13:20Z"}`)
	}))
	defer server.Close()

	source := NewDIASource(server.URL, "Ethereum", 5*time.Second)
	quote := source.GetPrice(context.Background(), wethAddress)

	require.Equal(t, "/v1/assetQuotation/Ethereum/"+wethAddress, gotPath)
	require.True(t, quote.Success)
	require.Equal(t, wethAddress, quote.FeedID)
	require.Equal(t, "WETH", quote.Symbol)
	require.Equal(t, "1891250000000000000000", quote.PriceRaw.String())
	require.Equal(t, "1891.25", quote.PriceUSD)
	require.True(t, quote.Confidence.IsZero())

	publishedAt, err := time.Parse(time.RFC3339, "2023-11-14T22:13:20Z")
	require.NoError(t, err)
	require.Equal(t, publishedAt.Unix(), quote.PublishTime)
}

func TestDIADefaultChain(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"Symbol":"WETH","Price":2000,"Time":"2023-11-14T22:13:20Z"}`)
	}))
	defer server.Close()

	NewDIASource(server.URL, "  ", 5*time.Second).GetPrice(context.Background(), wethAddress)
	require.Equal(t, "/v1/assetQuotation/Ethereum/"+wethAddress, gotPath)
}

func TestDIAUnknownAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer server.Close()

	quote := NewDIASource(server.URL, "Ethereum", 5*time.Second).GetPrice(context.Background(), "0x0000")
	require.False(t, quote.Success)
	require.Contains(t, quote.Error, ErrFeedNotFound.Error())
}

func TestDIAInvalidQuotations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero price", body: `{"Symbol":"X","Price":0,"Time":"2023-11-14T22:13:20Z"}`},
		{name: "negative price", body: `{"Symbol":"X","Price":-5,"Time":"2023-11-14T22:13:20Z"}`},
		{name: "garbage time", body: `{"Symbol":"X","Price":10,"Time":"yesterday"}`},
		{name: "empty body", body: `{}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			quote := NewDIASource(server.URL, "Ethereum", 5*time.Second).GetPrice(context.Background(), "0xabc")
			require.False(t, quote.Success)
			require.NotEmpty(t, quote.Error)
		})
	}
}

func TestDIAGetPricesFansOut(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		fmt.Fprint(w, `{"Symbol":"X","Price":10,"Time":"2023-11-14T22:13:20Z"}`)
	}))
	defer server.Close()

	quotes := NewDIASource(server.URL, "Ethereum", 5*time.Second).
		GetPrices(context.Background(), []string{"0xaaa", "0xbbb", "0xccc"})
	require.Len(t, quotes, 3)
	require.Equal(t, 3, requests)
	for _, quote := range quotes {
		require.True(t, quote.Success)
	}
}
