package stream

import (
	"context"
	"fmt"

	"github.com/povarna/prompt-gateway/internal/pipeline"
	internalredis "github.com/povarna/prompt-gateway/internal/redis"
	"github.com/povarna/prompt-gateway/internal/stream/redis"
	"github.com/rs/zerolog"
)

type StreamConfig struct {
	Provider    string // redis for now; kafka, sqs, etc. later
	RedisConfig *redis.RedisStreamConfig
}

func NewStreamConsumer(
	ctx context.Context,
	cfg *StreamConfig,
	pipe *pipeline.Pipeline,
	logger *zerolog.Logger,
) (StreamConsumer, error) {

	provider := cfg.Provider
	if provider == "" {
		provider = "redis"
	}

	switch provider {
	case "redis":
		if cfg.RedisConfig == nil {
			return nil, fmt.Errorf("redis config required")
		}

		client, err := internalredis.ConnectRedis(
			ctx,
			cfg.RedisConfig.RedisAddr,
			cfg.RedisConfig.RedisPassword,
			5,
		)
		if err != nil {
			return nil, err
		}

		return redis.NewConsumer(
			client,
			cfg.RedisConfig.Stream,
			cfg.RedisConfig.Group,
			cfg.RedisConfig.ConsumerName,
			pipe,
			logger,
		), nil

	default:
		return nil, fmt.Errorf("unsupported stream provider: %s", cfg.Provider)
	}
}
