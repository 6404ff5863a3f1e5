package setup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/povarna/prompt-gateway/internal/api"
	"github.com/povarna/prompt-gateway/internal/config"
	"github.com/povarna/prompt-gateway/internal/guardrail"
	"github.com/povarna/prompt-gateway/internal/pipeline"
	"github.com/povarna/prompt-gateway/internal/videoapi"
	"github.com/rs/zerolog"
)

// Config is the environment-driven part of the configuration, read once at
// startup. Values from the YAML gateway config fill the gaps.
type Config struct {
	AWSRegion        string
	GuardrailID      string
	GuardrailVersion string
	VideoAPIURL      string
	ForwardTimeout   time.Duration
	LogRequests      bool
	Port             string
}

type Dependencies struct {
	Pipeline *pipeline.Pipeline
	Info     api.ServiceInfo
	Logger   *zerolog.Logger
}

func LoadConfig() *Config {
	return &Config{
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		GuardrailID:      getEnv("GUARDRAIL_ID", ""),
		GuardrailVersion: getEnv("GUARDRAIL_VERSION", ""),
		VideoAPIURL:      getEnv("VIDEO_API_URL", ""),
		ForwardTimeout:   time.Duration(getEnvInt("FORWARD_TIMEOUT_SECONDS", 60)) * time.Second,
		LogRequests:      getEnvBool("LOG_REQUESTS", true),
		Port:             getEnv("GATEWAY_PORT", "18080"),
	}
}

func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	gatewayCfg, err := config.LoadGatewayConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load gateway config: %w", err)
	}

	// Env overrides the YAML policy identity.
	guardrailID := cfg.GuardrailID
	if guardrailID == "" {
		guardrailID = gatewayCfg.GuardrailID
	}
	guardrailVersion := cfg.GuardrailVersion
	if guardrailVersion == "" {
		guardrailVersion = gatewayCfg.GuardrailVersion
	}

	evaluator, err := guardrail.NewClient(ctx, cfg.AWSRegion, guardrailID, guardrailVersion, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create guardrail client: %w", err)
	}

	forwarder, err := videoapi.NewClient(cfg.VideoAPIURL, cfg.ForwardTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create video API client: %w", err)
	}

	pipe := pipeline.New(evaluator, forwarder, gatewayCfg.Messages, logger)

	return &Dependencies{
		Pipeline: pipe,
		Info: api.ServiceInfo{
			GuardrailID:      guardrailID,
			GuardrailVersion: guardrailVersion,
			LogRequests:      cfg.LogRequests,
			Messages:         gatewayCfg.Messages,
		},
		Logger: logger,
	}, nil
}

// WireAudit builds the pipeline for audit-only transports (stream worker,
// MCP). No forwarding client is created; audit flows never call it.
func WireAudit(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	gatewayCfg, err := config.LoadGatewayConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load gateway config: %w", err)
	}

	guardrailID := cfg.GuardrailID
	if guardrailID == "" {
		guardrailID = gatewayCfg.GuardrailID
	}
	guardrailVersion := cfg.GuardrailVersion
	if guardrailVersion == "" {
		guardrailVersion = gatewayCfg.GuardrailVersion
	}

	evaluator, err := guardrail.NewClient(ctx, cfg.AWSRegion, guardrailID, guardrailVersion, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create guardrail client: %w", err)
	}

	pipe := pipeline.New(evaluator, nil, gatewayCfg.Messages, logger)

	return &Dependencies{
		Pipeline: pipe,
		Info: api.ServiceInfo{
			GuardrailID:      guardrailID,
			GuardrailVersion: guardrailVersion,
			LogRequests:      cfg.LogRequests,
			Messages:         gatewayCfg.Messages,
		},
		Logger: logger,
	}, nil
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}
