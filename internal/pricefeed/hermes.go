/*
This file is used to fetch live prices from a Pyth Hermes endpoint.

Hermes serves Pyth price updates over REST. The latest-update endpoint
returns a signed binary payload plus a parsed form, we only consume the
parsed form: an integer coefficient with a base-10 exponent. Quotes are
rescaled to the canonical 18 decimal USD representation before they
leave this package so nothing downstream ever sees an exponent.

One quirk to be aware of: request ids may carry a 0x prefix but Hermes
strips it in the response, so ids are normalized on both sides.
*/

package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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

const hermesLatestPath = "/v2/updates/price/latest"

type HermesSource struct {
	logger  zerolog.Logger
	baseURL string
	client  *http.Client
}

func NewHermesSource(baseURL string, timeout time.Duration) *HermesSource {
	return &HermesSource{
		logger:  logger.GetForComponent("hermes_source"),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

func (h *HermesSource) Name() string {
	return "hermes"
}

type hermesPriceUpdate struct {
	ID    string `json:"id"`
	Price struct {
		Price       string `json:"price"`
		Conf        string `json:"conf"`
		Expo        int    `json:"expo"`
		PublishTime int64  `json:"publish_time"`
	} `json:"price"`
}

type hermesResponse struct {
	Parsed []hermesPriceUpdate `json:"parsed"`
}

func (h *HermesSource) GetPrice(ctx context.Context, feedID string) types.TokenPrice {
	return h.GetPrices(ctx, []string{feedID})[feedID]
}

func (h *HermesSource) GetPrices(ctx context.Context, feedIDs []string) map[string]types.TokenPrice {
	quotes := make(map[string]types.TokenPrice, len(feedIDs))
	if len(feedIDs) == 0 {
		return quotes
	}

	updates, err := h.fetchLatest(ctx, feedIDs)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int("feedCount", len(feedIDs)).
			Msg("Hermes request failed, marking all requested feeds as failed")
		for _, feedID := range feedIDs {
			quotes[feedID] = types.FailedPrice(feedID, err)
		}
		return quotes
	}

	byID := make(map[string]hermesPriceUpdate, len(updates))
	for _, update := range updates {
		byID[normalizeFeedID(update.ID)] = update
	}

	for _, feedID := range feedIDs {
		update, ok := byID[normalizeFeedID(feedID)]
		if !ok {
			h.logger.Warn().
				Str("feedID", feedID).
				Msg("Feed id missing from Hermes response")
			quotes[feedID] = types.FailedPrice(feedID, ErrFeedNotFound)
			continue
		}

		quote, err := quoteFromHermesUpdate(feedID, update)
		if err != nil {
			h.logger.Warn().
				Err(err).
				Str("feedID", feedID).
				Str("coefficient", update.Price.Price).
				Int("expo", update.Price.Expo).
				Msg("Discarding unusable Hermes quote")
			quotes[feedID] = types.FailedPrice(feedID, err)
			continue
		}
		quotes[feedID] = quote
	}

	return quotes
}

func (h *HermesSource) fetchLatest(ctx context.Context, feedIDs []string) ([]hermesPriceUpdate, error) {
	params := url.Values{}
	for _, feedID := range feedIDs {
		params.Add("ids[]", feedID)
	}
	requestURL := h.baseURL + hermesLatestPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building Hermes request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Hermes request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Hermes response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Hermes returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed hermesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing Hermes response: %w", err)
	}
	if len(parsed.Parsed) == 0 {
		return nil, fmt.Errorf("%w: empty parsed section", ErrFeedNotFound)
	}

	return parsed.Parsed, nil
}

// quoteFromHermesUpdate validates one parsed update and rescales it to 18 decimals.
func quoteFromHermesUpdate(feedID string, update hermesPriceUpdate) (types.TokenPrice, error) {
	if update.Price.PublishTime <= 0 {
		return types.TokenPrice{}, fmt.Errorf("%w: publish time %d", ErrInvalidQuote, update.Price.PublishTime)
	}

	coefficient, ok := sdkmath.NewIntFromString(update.Price.Price)
	if !ok {
		return types.TokenPrice{}, fmt.Errorf("%w: unparseable coefficient %q", ErrInvalidQuote, update.Price.Price)
	}
	if !coefficient.IsPositive() {
		return types.TokenPrice{}, fmt.Errorf("%w: non-positive price %s", ErrInvalidQuote, update.Price.Price)
	}

	confidence, ok := sdkmath.NewIntFromString(update.Price.Conf)
	if !ok || confidence.IsNegative() {
		return types.TokenPrice{}, fmt.Errorf("%w: unparseable confidence %q", ErrInvalidQuote, update.Price.Conf)
	}

	priceRaw, err := rescaleExponent(coefficient, update.Price.Expo)
	if err != nil {
		return types.TokenPrice{}, err
	}
	if !priceRaw.IsPositive() {
		return types.TokenPrice{}, fmt.Errorf("%w: price truncates to zero at canonical scale", ErrInvalidQuote)
	}
	confidenceRaw, err := rescaleExponent(confidence, update.Price.Expo)
	if err != nil {
		return types.TokenPrice{}, err
	}

	priceUSD, err := fixedpoint.FromBaseUnit(priceRaw, fixedpoint.CanonicalUSDScale)
	if err != nil {
		return types.TokenPrice{}, fmt.Errorf("%w: %v", ErrInvalidQuote, err)
	}

	return types.TokenPrice{
		FeedID:      feedID,
		PriceUSD:    priceUSD,
		PriceRaw:    priceRaw,
		Confidence:  confidenceRaw,
		PublishTime: update.Price.PublishTime,
		Success:     true,
	}, nil
}

// rescaleExponent converts coefficient*10^expo to the canonical USD scale,
// truncating toward zero when the exponent shift loses precision.
func rescaleExponent(coefficient sdkmath.Int, expo int) (sdkmath.Int, error) {
	shift := fixedpoint.CanonicalUSDScale + expo
	if shift < -fixedpoint.MaxSupportedScale || shift > fixedpoint.MaxSupportedScale {
		return sdkmath.Int{}, fmt.Errorf("%w: exponent %d out of range", ErrInvalidQuote, expo)
	}

	value := coefficient.BigInt()
	if shift >= 0 {
		value.Mul(value, fixedpoint.Pow10(shift).BigInt())
		if value.BitLen() > sdkmath.MaxBitLen {
			return sdkmath.Int{}, fmt.Errorf("%w: scaled coefficient exceeds %d bits", ErrInvalidQuote, sdkmath.MaxBitLen)
		}
	} else {
		value.Quo(value, fixedpoint.Pow10(-shift).BigInt())
	}
	return sdkmath.NewIntFromBigInt(value), nil
}

func normalizeFeedID(feedID string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(feedID)), "0x")
}
