package main

import (
	"context"

	"github.com/tidelend/core/internal/collateral"
	"github.com/tidelend/core/internal/config"
	"github.com/tidelend/core/internal/logger"
	"github.com/tidelend/core/internal/policy"
	"github.com/tidelend/core/internal/pricefeed"
	"github.com/tidelend/core/internal/quoter"
	"github.com/tidelend/core/internal/registry"
	"github.com/tidelend/core/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// devPrices seeds the static source so the engine is usable without any
// upstream feed. Development only.
var devPrices = map[string]string{
	"WETH": "2000",
	"WBTC": "60000",
	"USDC": "1",
	"USDT": "1",
	"DAI":  "1",
	"LINK": "15",
}

// main is the entry point for the collateral engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(config.LogLevel)
	log.Info().Msg("Collateral Engine Starting...")

	// --- 2. Token Registry ---
	tokens, err := registry.NewDefaultRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build token registry")
	}

	// DIA quotes by contract address, so re-point every feed id at the
	// token's address before anything starts fetching.
	if config.PriceSource == config.SourceDIA {
		for _, token := range tokens.Tokens() {
			token.FeedID = token.Address
			if err := tokens.Register(token); err != nil {
				log.Fatal().Err(err).Str("symbol", token.Symbol).Msg("Failed to re-register token for DIA")
			}
		}
	}

	// --- 3. Price Source Selection (with Safety Switch) ---
	var source pricefeed.Source
	switch config.PriceSource {
	case config.SourceHermes:
		source = pricefeed.NewHermesSource(config.HermesBaseURL, config.FeedHTTPTimeout)
	case config.SourceDIA:
		source = pricefeed.NewDIASource(config.DIABaseURL, config.DIAChain, config.FeedHTTPTimeout)
	case config.SourceStatic:
		log.Warn().Msg("PRICE_SOURCE is 'static'. Fixed development prices will be served. Do not use for real decisions.")
		static := pricefeed.NewStaticSource()
		for symbol, price := range devPrices {
			token, err := tokens.BySymbol(symbol)
			if err != nil {
				log.Fatal().Err(err).Str("symbol", symbol).Msg("Development price refers to unknown token")
			}
			if err := static.SetPrice(token.FeedID, price); err != nil {
				log.Fatal().Err(err).Str("symbol", symbol).Msg("Failed to seed development price")
			}
		}
		source = static
	default:
		log.Fatal().Str("source", config.PriceSource).Msg("Unsupported PRICE_SOURCE")
	}
	log.Info().Str("source", source.Name()).Msg("Price source initialized")

	cache, err := pricefeed.NewCache(source, pricefeed.Options{
		TTL:          config.PriceCacheTTL,
		MaxStaleness: config.PriceMaxStaleness,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create price cache")
	}

	// --- 4. Create Engine Components with Dependency Injection ---
	riskPolicy := policy.NewTierPolicy()

	calculator, err := collateral.NewCalculator(collateral.Config{
		Prices: cache,
		Tokens: tokens,
		Policy: riskPolicy,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create collateral calculator")
	}

	priceQuoter, err := quoter.NewQuoter(quoter.Config{
		Cache:  cache,
		Tokens: tokens,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create quoter")
	}

	// --- 5. Start Web Server ---
	webServer, err := web.NewWebServer(web.Config{
		Port:       config.WebPort,
		Tokens:     tokens,
		Prices:     cache,
		Calculator: calculator,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web server")
	}

	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 6. Start Price Refresh Loop ---
	log.Info().Str("interval", config.RefreshInterval.String()).Msg("Starting price refresh loop")

	ctx := context.Background()

	// Keeps the cache warm indefinitely
	priceQuoter.RunRefreshLoop(ctx, config.RefreshInterval)
}
