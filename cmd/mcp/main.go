package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/povarna/prompt-gateway/internal/mcpadapter"
	"github.com/povarna/prompt-gateway/internal/setup"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	logger := log.Logger

	// Load env
	_ = godotenv.Load()

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load Config
	cfg := setup.LoadConfig()

	// Wire dependencies (audit mode: no forwarding client)
	deps, err := setup.WireAudit(ctx, cfg, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Unable to load dependencies")
		os.Exit(1)
	}

	// Create MCP Server
	server := createMCPServer(deps)

	// Run over stdio
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		// EOF / "server is closing" is expected when stdin closes
		if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "server is closing") {
			logger.Debug().Err(err).Msg("MCP server stopped")
			return
		}
		logger.Error().Err(err).Msg("Failed to run mcp server")
		os.Exit(1)
	}
}

func createMCPServer(deps *setup.Dependencies) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "prompt-gateway",
			Version: "1.0.0",
		}, nil,
	)

	// Add Tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_prompt",
		Description: "Check a prompt against the configured content policy. Returns the allow/block verdict without forwarding anything.",
	}, mcpadapter.NewValidateHandler(deps.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_prompt_batch",
		Description: "Check a batch of prompts against the configured content policy. Results come back in input order with allowed/blocked counts.",
	}, mcpadapter.NewValidateBatchHandler(deps.Pipeline))
	return server
}
