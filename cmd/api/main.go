package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/joho/godotenv"
	"github.com/povarna/prompt-gateway/internal/api"
	"github.com/povarna/prompt-gateway/internal/api/middleware"
	"github.com/povarna/prompt-gateway/internal/metrics"
	"github.com/povarna/prompt-gateway/internal/setup"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	logger := log.Logger

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	ctx := context.Background()

	// Load Config
	cfg := setup.LoadConfig()

	// Wire dependencies
	deps, err := setup.Wire(ctx, cfg, &logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// API
	handler := api.NewHandler(deps.Pipeline, deps.Info, &logger)
	container := restful.NewContainer()
	container.Filter(middleware.Preflight)
	container.Filter(middleware.AccessLog(&logger, cfg.LogRequests))
	container.Filter(middleware.RecoverPanic(&logger))
	container.ServiceErrorHandler(middleware.NotFoundHandler(api.KnownRoutes, &logger))
	api.RegisterRoutes(container, handler)

	// Metrics
	container.Handle("/metrics", metrics.Handler())

	// CORS. OptionsPassthrough keeps preflight answers with the gateway's
	// own filter so the response body stays {"message":"OK"}.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"Content-Type", "Authorization"},
		OptionsPassthrough: true,
	})

	// Server
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info().Str("address", addr).Str("guardrail", deps.Info.GuardrailID).Msg("Starting Prompt Gateway API")

	server := http.Server{
		Addr:    addr,
		Handler: corsHandler.Handler(container),
	}

	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
