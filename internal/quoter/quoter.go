/*
The quoter keeps the price cache warm so assessment requests rarely pay
upstream latency. Each cycle resolves every feed the registry knows
about; feeds whose cached quote is still within TTL cost nothing.

The quotes each cycle brings back also feed the volatility analyzer:
per-feed price history accumulates across cycles and tokens whose
measured volatility outgrows their listed tier are escalated to the
stricter tier. Escalation is one-way, loosening a tier is an operator
decision.
*/

package quoter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tidelend/core/internal/analyzer"
	"github.com/tidelend/core/internal/logger"
	"github.com/tidelend/core/internal/pricefeed"
	"github.com/tidelend/core/internal/registry"
	"github.com/tidelend/core/internal/types"
)

const (
	// historyWindow bounds the per-feed history the volatility
	// measurement runs over.
	historyWindow = 168

	// minHistoryForTier is how many observations a feed needs before a
	// volatility reading is trusted to reclassify its token.
	minHistoryForTier = 12

	secondsPerYear = 365 * 24 * 3600
)

var tierRank = map[types.VolatilityTier]int{
	types.TierStable:   0,
	types.TierModerate: 1,
	types.TierHigh:     2,
}

type Quoter struct {
	logger zerolog.Logger
	cache  *pricefeed.Cache
	tokens *registry.Registry

	cycleCount int
	history    map[string][]types.PriceData
}

// Config holds the dependencies for creating a new Quoter.
type Config struct {
	Cache  *pricefeed.Cache
	Tokens *registry.Registry
}

func NewQuoter(cfg Config) (*Quoter, error) {
	if err := validateQuoterConfig(cfg); err != nil {
		return nil, fmt.Errorf("quoter configuration validation failed: %w", err)
	}
	return &Quoter{
		logger:  logger.GetForComponent("quoter"),
		cache:   cfg.Cache,
		tokens:  cfg.Tokens,
		history: make(map[string][]types.PriceData),
	}, nil
}

func validateQuoterConfig(cfg Config) error {
	if cfg.Cache == nil {
		return fmt.Errorf("price cache cannot be nil")
	}
	if cfg.Tokens == nil {
		return fmt.Errorf("token registry cannot be nil")
	}
	return nil
}

// RunRefreshLoop runs refresh cycles until the context is cancelled.
// The first cycle runs immediately so the cache is warm before the web
// server takes traffic.
func (q *Quoter) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	q.logger.Info().
		Dur("interval", interval).
		Msg("Starting price refresh loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	q.cycleCount++
	q.RefreshCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			q.logger.Info().Msg("Price refresh loop stopped due to context cancellation")
			return
		case <-ticker.C:
			q.cycleCount++
			q.RefreshCycle(ctx)
		}
	}
}

// RefreshCycle resolves every registered feed through the cache once.
func (q *Quoter) RefreshCycle(ctx context.Context) {
	cycleStartTime := time.Now()

	cycleID := uuid.New().String()
	cycleLogger := q.logger.With().
		Str("cycle_id", cycleID).
		Int("cycle", q.cycleCount).
		Logger()

	feedIDs := q.tokens.FeedIDs()
	if len(feedIDs) == 0 {
		cycleLogger.Warn().Msg("No feeds registered, nothing to refresh")
		return
	}

	quotes := q.cache.GetMany(ctx, feedIDs)

	refreshed := 0
	failed := 0
	for feedID, quote := range quotes {
		if quote.Success {
			refreshed++
			continue
		}
		failed++
		cycleLogger.Warn().
			Str("feedID", feedID).
			Str("fetchError", quote.Error).
			Msg("Feed refresh failed")
	}

	q.recordHistory(quotes)
	q.reclassifyTiers(cycleLogger)

	cycleLogger.Info().
		Int("refreshed", refreshed).
		Int("failed", failed).
		Str("cycleDuration", time.Since(cycleStartTime).String()).
		Msg("Price refresh cycle completed")
}

// recordHistory appends each quote to the per-feed price history. Only
// quotes whose publish time moved past the last recorded observation
// count; a cached quote served twice is one data point, not two.
func (q *Quoter) recordHistory(quotes map[string]types.TokenPrice) {
	for feedID, quote := range quotes {
		if !quote.Success {
			continue
		}
		price, err := strconv.ParseFloat(quote.PriceUSD, 64)
		if err != nil || price <= 0 {
			continue
		}

		hist := q.history[feedID]
		if n := len(hist); n > 0 && quote.PublishTime <= hist[n-1].Timestamp.Unix() {
			continue
		}
		hist = append(hist, types.PriceData{
			Timestamp: time.Unix(quote.PublishTime, 0),
			Price:     price,
		})
		if len(hist) > historyWindow {
			hist = hist[len(hist)-historyWindow:]
		}
		q.history[feedID] = hist
	}
}

// reclassifyTiers re-derives every token's volatility tier from its
// accumulated price history and escalates tokens whose measured tier is
// stricter than their listed one. Tiers never loosen automatically: a
// calm stretch in the history is not evidence the asset became safe.
func (q *Quoter) reclassifyTiers(cycleLogger zerolog.Logger) {
	for _, token := range q.tokens.Tokens() {
		hist := q.history[token.FeedID]
		if len(hist) < minHistoryForTier {
			continue
		}

		volatility, err := analyzer.AnnualizedVolatility(hist, periodsPerYear(hist))
		if err != nil {
			continue
		}
		measured := analyzer.ClassifyTier(volatility)
		if tierRank[measured] <= tierRank[token.Tier] {
			continue
		}

		if err := q.tokens.SetTier(token.Symbol, measured); err != nil {
			cycleLogger.Error().
				Err(err).
				Str("symbol", token.Symbol).
				Msg("Failed to escalate volatility tier")
			continue
		}
		cycleLogger.Warn().
			Str("symbol", token.Symbol).
			Float64("annualizedVolatility", volatility).
			Str("previousTier", string(token.Tier)).
			Str("newTier", string(measured)).
			Msg("Token escalated to a stricter volatility tier")
	}
}

// periodsPerYear derives the annualization factor from the observed
// sampling interval of a history series.
func periodsPerYear(hist []types.PriceData) float64 {
	span := hist[len(hist)-1].Timestamp.Sub(hist[0].Timestamp).Seconds()
	if span <= 0 {
		return analyzer.PeriodsPerYearHourly
	}
	return secondsPerYear / (span / float64(len(hist)-1))
}
