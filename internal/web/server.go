package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tidelend/core/internal/collateral"
	"github.com/tidelend/core/internal/fixedpoint"
	"github.com/tidelend/core/internal/logger"
	"github.com/tidelend/core/internal/pricefeed"
	"github.com/tidelend/core/internal/registry"
	"github.com/tidelend/core/internal/validate"
)

// WebServer exposes the collateral engine over a JSON API.
type WebServer struct {
	logger     zerolog.Logger
	router     *mux.Router
	port       string
	tokens     *registry.Registry
	prices     *pricefeed.Cache
	calculator *collateral.Calculator
}

// Config holds the dependencies for creating a new WebServer.
type Config struct {
	Port       string
	Tokens     *registry.Registry
	Prices     *pricefeed.Cache
	Calculator *collateral.Calculator
}

// NewWebServer creates a new web server instance
func NewWebServer(cfg Config) (*WebServer, error) {
	if err := validateWebConfig(cfg); err != nil {
		return nil, fmt.Errorf("web server configuration validation failed: %w", err)
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	server := &WebServer{
		logger:     logger.GetForComponent("web_server"),
		router:     mux.NewRouter(),
		port:       cfg.Port,
		tokens:     cfg.Tokens,
		prices:     cfg.Prices,
		calculator: cfg.Calculator,
	}

	server.setupRoutes()
	return server, nil
}

func validateWebConfig(cfg Config) error {
	if cfg.Tokens == nil {
		return fmt.Errorf("token registry cannot be nil")
	}
	if cfg.Prices == nil {
		return fmt.Errorf("price cache cannot be nil")
	}
	if cfg.Calculator == nil {
		return fmt.Errorf("collateral calculator cannot be nil")
	}
	return nil
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health and metrics (direct routes)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/tokens", ws.handleGetTokens).Methods("GET")
	api.HandleFunc("/prices/{symbol}", ws.handleGetPrice).Methods("GET")
	api.HandleFunc("/assess", ws.handleAssess).Methods("GET")
	api.HandleFunc("/exchange-rate", ws.handleExchangeRate).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	ws.logger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// Handler returns the configured router, mainly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := map[string]interface{}{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "tidelend-core",
			"version": "1.0.0",
		},
		"prices": map[string]interface{}{
			"cached_feeds":      ws.prices.Size(),
			"registered_tokens": len(ws.tokens.Tokens()),
		},
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetTokens returns every registered token
func (ws *WebServer) handleGetTokens(w http.ResponseWriter, r *http.Request) {
	tokens := ws.tokens.Tokens()

	response := map[string]interface{}{
		"tokens": tokens,
		"count":  len(tokens),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPrice returns the current cached quote for one token
func (ws *WebServer) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := vars["symbol"]

	token, err := ws.tokens.BySymbol(symbol)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Unknown token symbol")
		return
	}

	quote, status := ws.prices.Get(r.Context(), token.FeedID)
	if !quote.Success {
		ws.logger.Error().
			Str("symbol", token.Symbol).
			Str("feedID", token.FeedID).
			Str("fetchError", quote.Error).
			Msg("Failed to resolve price for symbol")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Price feed unavailable")
		return
	}

	response := map[string]interface{}{
		"symbol": token.Symbol,
		"price":  quote,
		"cache": map[string]interface{}{
			"hit":               status.Hit,
			"stale":             status.Stale,
			"cache_age_seconds": status.CacheAge.Seconds(),
			"price_age_seconds": status.PriceAge.Seconds(),
		},
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleAssess runs a collateral assessment from query parameters.
// Amounts pass through the input cleaner so pasted values like
// "$4,500.00" behave the way a form field would.
func (ws *WebServer) handleAssess(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	loanSymbol := query.Get("loan")
	collateralSymbol := query.Get("collateral")
	loanAmount := query.Get("loan_amount")
	if loanSymbol == "" || collateralSymbol == "" || loanAmount == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Query parameters loan, collateral and loan_amount are required")
		return
	}

	request := collateral.AssessmentRequest{
		LoanSymbol:       loanSymbol,
		CollateralSymbol: collateralSymbol,
		LoanAmount:       validate.CleanInput(loanAmount, fixedpoint.MaxSupportedScale),
		CollateralAmount: validate.CleanInput(query.Get("collateral_amount"), fixedpoint.MaxSupportedScale),
	}

	assessment, err := ws.calculator.Assess(r.Context(), request)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrUnknownToken):
			ws.writeErrorResponse(w, http.StatusNotFound, "Unknown token symbol")
		case errors.Is(err, collateral.ErrInvalidAmount):
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		case errors.Is(err, collateral.ErrPriceUnavailable), errors.Is(err, collateral.ErrPolicyUnavailable):
			ws.logger.Warn().Err(err).
				Str("loan", loanSymbol).
				Str("collateral", collateralSymbol).
				Msg("Assessment unavailable")
			ws.writeJSONResponse(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":    "unavailable",
				"message":   "Cannot assess right now, required price or policy data is missing",
				"timestamp": time.Now().UTC(),
			})
		default:
			ws.logger.Error().Err(err).
				Str("loan", loanSymbol).
				Str("collateral", collateralSymbol).
				Msg("Assessment failed")
			ws.writeErrorResponse(w, http.StatusInternalServerError, "Assessment failed")
		}
		return
	}

	responseStatus := "ok"
	if assessment.PriceStale {
		responseStatus = "stale"
	}

	response := map[string]interface{}{
		"status":     responseStatus,
		"assessment": assessment,
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleExchangeRate returns how much collateral one whole loan token buys
func (ws *WebServer) handleExchangeRate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	loanSymbol := query.Get("loan")
	collateralSymbol := query.Get("collateral")
	if loanSymbol == "" || collateralSymbol == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Query parameters loan and collateral are required")
		return
	}

	collateralToken, err := ws.tokens.BySymbol(collateralSymbol)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Unknown token symbol")
		return
	}

	rate, err := ws.calculator.ExchangeRate(r.Context(), loanSymbol, collateralSymbol)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrUnknownToken):
			ws.writeErrorResponse(w, http.StatusNotFound, "Unknown token symbol")
		case errors.Is(err, collateral.ErrPriceUnavailable):
			ws.writeJSONResponse(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":    "unavailable",
				"message":   "Cannot quote right now, a required price is missing",
				"timestamp": time.Now().UTC(),
			})
		default:
			ws.logger.Error().Err(err).
				Str("loan", loanSymbol).
				Str("collateral", collateralSymbol).
				Msg("Exchange rate lookup failed")
			ws.writeErrorResponse(w, http.StatusInternalServerError, "Exchange rate lookup failed")
		}
		return
	}

	response := map[string]interface{}{
		"loan_symbol":       loanSymbol,
		"collateral_symbol": collateralToken.Symbol,
		"rate":              rate,
		"rate_formatted":    fixedpoint.FormatTokenAmount(rate, collateralToken.Decimals, collateralToken.Symbol),
		"timestamp":         time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		ws.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		ws.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
