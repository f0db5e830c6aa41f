/*
This file is used to fetch live prices from the DIA REST API.

DIA quotes assets by chain + contract address, so in DIA mode the
registry carries the token's contract address as its feed id. Prices
arrive as floats, they cross into integer space exactly once here and
stay integer from then on.
*/

package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/tidelend/core/internal/fixedpoint"
	"github.com/tidelend/core/internal/logger"
	"github.com/tidelend/core/internal/types"
)

const diaQuotationPath = "/v1/assetQuotation"

type DIASource struct {
	logger  zerolog.Logger
	baseURL string
	chain   string
	client  *http.Client
}

func NewDIASource(baseURL, chain string, timeout time.Duration) *DIASource {
	if strings.TrimSpace(chain) == "" {
		chain = "Ethereum"
	}
	return &DIASource{
		logger:  logger.GetForComponent("dia_source"),
		baseURL: strings.TrimRight(baseURL, "/"),
		chain:   chain,
		client:  newHTTPClient(timeout),
	}
}

func (d *DIASource) Name() string {
	return "dia"
}

type diaQuotation struct {
	Symbol string  `json:"Symbol"`
	Name   string  `json:"Name"`
	Price  float64 `json:"Price"`
	Time   string  `json:"Time"`
}

func (d *DIASource) GetPrice(ctx context.Context, feedID string) types.TokenPrice {
	quotation, err := d.fetchQuotation(ctx, feedID)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("feedID", feedID).
			Str("chain", d.chain).
			Msg("DIA quotation fetch failed")
		return types.FailedPrice(feedID, err)
	}

	quote, err := quoteFromDIAQuotation(feedID, quotation)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("feedID", feedID).
			Str("symbol", quotation.Symbol).
			Float64("price", quotation.Price).
			Msg("Discarding unusable DIA quote")
		return types.FailedPrice(feedID, err)
	}
	return quote
}

// GetPrices fetches quotations one by one, DIA has no batch endpoint.
func (d *DIASource) GetPrices(ctx context.Context, feedIDs []string) map[string]types.TokenPrice {
	quotes := make(map[string]types.TokenPrice, len(feedIDs))
	for _, feedID := range feedIDs {
		quotes[feedID] = d.GetPrice(ctx, feedID)
	}
	return quotes
}

func (d *DIASource) fetchQuotation(ctx context.Context, feedID string) (diaQuotation, error) {
	requestURL := fmt.Sprintf("%s%s/%s/%s",
		d.baseURL, diaQuotationPath, url.PathEscape(d.chain), url.PathEscape(strings.TrimSpace(feedID)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return diaQuotation{}, fmt.Errorf("building DIA request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return diaQuotation{}, fmt.Errorf("DIA request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return diaQuotation{}, fmt.Errorf("reading DIA response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return diaQuotation{}, fmt.Errorf("%w: %s on %s", ErrFeedNotFound, feedID, d.chain)
	}
	if resp.StatusCode != http.StatusOK {
		return diaQuotation{}, fmt.Errorf("DIA returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var quotation diaQuotation
	if err := json.Unmarshal(body, &quotation); err != nil {
		return diaQuotation{}, fmt.Errorf("parsing DIA response: %w", err)
	}
	return quotation, nil
}

func quoteFromDIAQuotation(feedID string, quotation diaQuotation) (types.TokenPrice, error) {
	if math.IsNaN(quotation.Price) || math.IsInf(quotation.Price, 0) {
		return types.TokenPrice{}, fmt.Errorf("%w: price is not finite", ErrInvalidQuote)
	}
	if quotation.Price <= 0 {
		return types.TokenPrice{}, fmt.Errorf("%w: non-positive price %f", ErrInvalidQuote, quotation.Price)
	}

	publishedAt, err := time.Parse(time.RFC3339, quotation.Time)
	if err != nil {
		return types.TokenPrice{}, fmt.Errorf("%w: unparseable quotation time %q", ErrInvalidQuote, quotation.Time)
	}
	if publishedAt.Unix() <= 0 {
		return types.TokenPrice{}, fmt.Errorf("%w: quotation time %q predates the epoch", ErrInvalidQuote, quotation.Time)
	}

	priceRaw, err := fixedpoint.Float64ToBaseUnit(quotation.Price, fixedpoint.CanonicalUSDScale)
	if err != nil {
		return types.TokenPrice{}, fmt.Errorf("%w: %v", ErrInvalidQuote, err)
	}
	if !priceRaw.IsPositive() {
		return types.TokenPrice{}, fmt.Errorf("%w: price truncates to zero at canonical scale", ErrInvalidQuote)
	}

	priceUSD, err := fixedpoint.FromBaseUnit(priceRaw, fixedpoint.CanonicalUSDScale)
	if err != nil {
		return types.TokenPrice{}, fmt.Errorf("%w: %v", ErrInvalidQuote, err)
	}

	return types.TokenPrice{
		FeedID:      feedID,
		Symbol:      quotation.Symbol,
		PriceUSD:    priceUSD,
		PriceRaw:    priceRaw,
		Confidence:  sdkmath.ZeroInt(),
		PublishTime: publishedAt.Unix(),
		Success:     true,
	}, nil
}
