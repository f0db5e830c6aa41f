package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Supported price source selections for PRICE_SOURCE.
const (
	SourceHermes = "hermes"
	SourceDIA    = "dia"
	SourceStatic = "static"
)

// Application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// LogLevel controls the zerolog global level (debug, info, warn, error).
	LogLevel string
	// WebPort is the port the JSON API listens on.
	WebPort string

	// PriceSource selects the upstream quote provider: hermes, dia or static.
	PriceSource string
	// HermesBaseURL is the Pyth Hermes endpoint, required in hermes mode.
	HermesBaseURL string
	// DIABaseURL is the DIA REST endpoint, required in dia mode.
	DIABaseURL string
	// DIAChain is the chain DIA quotes against, e.g. "Ethereum".
	DIAChain string

	// PriceCacheTTL is how long a fetched quote stays fresh in the cache.
	PriceCacheTTL time.Duration
	// PriceMaxStaleness is the default publish-time staleness bound.
	PriceMaxStaleness time.Duration
	// RefreshInterval is the period of the background price refresh loop.
	RefreshInterval time.Duration
	// FeedHTTPTimeout bounds each upstream HTTP request.
	FeedHTTPTimeout time.Duration
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. PRICE_SOURCE is required, everything else defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	WebPort = getEnvOrDefault("WEB_PORT", "8080")

	PriceSource, err = getEnv("PRICE_SOURCE")
	if err != nil {
		return err
	}
	PriceSource = strings.ToLower(strings.TrimSpace(PriceSource))

	switch PriceSource {
	case SourceHermes:
		HermesBaseURL, err = getEnv("HERMES_BASE_URL")
		if err != nil {
			return err
		}
	case SourceDIA:
		DIABaseURL, err = getEnv("DIA_BASE_URL")
		if err != nil {
			return err
		}
	case SourceStatic:
		// No endpoint needed.
	default:
		return errors.New("environment variable PRICE_SOURCE must be one of: hermes, dia, static")
	}

	DIAChain = getEnvOrDefault("DIA_CHAIN", "Ethereum")

	PriceCacheTTL, err = getEnvAsSeconds("PRICE_CACHE_TTL_SECONDS", 30)
	if err != nil {
		return err
	}
	PriceMaxStaleness, err = getEnvAsSeconds("PRICE_MAX_STALENESS_SECONDS", 60)
	if err != nil {
		return err
	}
	RefreshInterval, err = getEnvAsSeconds("REFRESH_INTERVAL_SECONDS", 30)
	if err != nil {
		return err
	}
	FeedHTTPTimeout, err = getEnvAsSeconds("FEED_HTTP_TIMEOUT_SECONDS", 10)
	if err != nil {
		return err
	}

	log.Debug().
		Str("PriceSource", PriceSource).
		Str("WebPort", WebPort).
		Dur("PriceCacheTTL", PriceCacheTTL).
		Dur("RefreshInterval", RefreshInterval).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable with a fallback.
func getEnvOrDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsSeconds retrieves an environment variable as a duration given in
// whole seconds. Returns error if set but not a positive integer.
func getEnvAsSeconds(key string, fallbackSeconds int) (time.Duration, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return time.Duration(fallbackSeconds) * time.Second, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return 0, errors.New("environment variable " + key + " must be a positive integer of seconds, got: " + valueStr)
	}
	return time.Duration(value) * time.Second, nil
}
