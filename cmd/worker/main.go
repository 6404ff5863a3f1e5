package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/povarna/prompt-gateway/internal/setup"
	setuplogger "github.com/povarna/prompt-gateway/internal/setup/logger"
	"github.com/povarna/prompt-gateway/internal/stream"
	"github.com/povarna/prompt-gateway/internal/stream/redis"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	logger := setuplogger.New(os.Getenv("LOG_LEVEL"))
	log.Logger = logger

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load Config
	cfg := setup.LoadConfig()

	// Wire dependencies (audit mode: no forwarding client)
	deps, err := setup.WireAudit(ctx, cfg, &logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Stream consumer
	streamCfg := &stream.StreamConfig{
		Provider: os.Getenv("STREAM_PROVIDER"),
		RedisConfig: redis.NewRedisStreamConfig(
			os.Getenv("REDIS_ADDR"),
			os.Getenv("REDIS_PASSWORD"),
			"validation-requests",
			"validation-group",
			os.Getenv("HOSTNAME"),
		),
	}

	consumer, err := stream.NewStreamConsumer(ctx, streamCfg, deps.Pipeline, &logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create stream consumer")
	}

	if err := consumer.Setup(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup consumer")
	}

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Consumer stopped with error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down...")

	log.Info().Msg("Audit worker stopped")
}
