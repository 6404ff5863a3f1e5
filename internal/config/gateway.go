package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Messages are the fixed user-facing texts returned by the gateway. They are
// read once at startup and never mutated during request handling.
type Messages struct {
	Blocked       string `yaml:"blocked" json:"blocked"`
	InternalError string `yaml:"internal_error" json:"internalError"`
	BatchError    string `yaml:"batch_error" json:"batchError"`
}

// GatewayConfig is the YAML-backed part of the configuration: the moderation
// policy identity and the policy messages.
type GatewayConfig struct {
	GuardrailID      string   `yaml:"guardrail_id"`
	GuardrailVersion string   `yaml:"guardrail_version"`
	Messages         Messages `yaml:"messages"`
}

func LoadGatewayConfig() (*GatewayConfig, error) {

	path := os.Getenv("GATEWAY_CONFIG_PATH")
	if path == "" {
		path = "configs/gateway.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg GatewayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *GatewayConfig) {
	if cfg.GuardrailVersion == "" {
		cfg.GuardrailVersion = "DRAFT"
	}
	if cfg.Messages.Blocked == "" {
		cfg.Messages.Blocked = "Prompt rejected by content policy"
	}
	if cfg.Messages.InternalError == "" {
		cfg.Messages.InternalError = "Internal server error"
	}
	if cfg.Messages.BatchError == "" {
		cfg.Messages.BatchError = "Batch validation failed"
	}
}
