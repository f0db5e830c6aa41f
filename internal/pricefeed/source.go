/*
Price sources resolve feed ids to current USD quotes.

A source never fails as a whole: transport or validation problems come
back as per-feed quotes with Success=false so one bad feed cannot sink a
batch. All successful quotes carry PriceRaw at the canonical USD scale.
*/

package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tidelend/core/internal/types"
)

var (
	ErrFeedNotFound = errors.New("feed id not present in source response")
	ErrInvalidQuote = errors.New("source returned an unusable quote")
)

const DEFAULT_HTTP_TIMEOUT = 10 * time.Second

// Source yields USD quotes for price feed ids.
type Source interface {
	Name() string
	GetPrice(ctx context.Context, feedID string) types.TokenPrice
	GetPrices(ctx context.Context, feedIDs []string) map[string]types.TokenPrice
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DEFAULT_HTTP_TIMEOUT
	}
	return &http.Client{Timeout: timeout}
}
