package mcpadapter

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/povarna/prompt-gateway/internal/models"
	"github.com/povarna/prompt-gateway/internal/pipeline"
)

// ValidateInput is the MCP tool input schema for single prompt validation.
type ValidateInput struct {
	Prompt string `json:"prompt" jsonschema:"prompt text to validate against the content policy"`
}

// ValidateBatchInput is the MCP tool input schema for batch validation.
type ValidateBatchInput struct {
	Prompts []string `json:"prompts" jsonschema:"prompts to validate against the content policy"`
}

// BatchOutcome is the batch tool result: per-item verdicts plus counts.
type BatchOutcome struct {
	Results []models.BatchItemResult `json:"results"`
	Summary models.BatchSummary      `json:"summary"`
}

// NewValidateHandler returns a tool handler that audits one prompt.
// Pass the returned function to mcp.AddTool.
func NewValidateHandler(pipe *pipeline.Pipeline) func(context.Context, *mcp.CallToolRequest, ValidateInput) (*mcp.CallToolResult, models.Verdict, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ValidateInput) (*mcp.CallToolResult, models.Verdict, error) {
		return ValidatePrompt(ctx, pipe, req, input)
	}
}

// ValidatePrompt runs the moderation check and returns the verdict. The MCP
// surface is audit-only; nothing is forwarded downstream.
func ValidatePrompt(
	ctx context.Context,
	pipe *pipeline.Pipeline,
	req *mcp.CallToolRequest,
	input ValidateInput,
) (*mcp.CallToolResult, models.Verdict, error) {
	verdict := pipe.Audit(ctx, input.Prompt)
	return nil, verdict, nil
}

// NewValidateBatchHandler returns a tool handler for batch validation.
// Pass the returned function to mcp.AddTool.
func NewValidateBatchHandler(pipe *pipeline.Pipeline) func(context.Context, *mcp.CallToolRequest, ValidateBatchInput) (*mcp.CallToolResult, BatchOutcome, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ValidateBatchInput) (*mcp.CallToolResult, BatchOutcome, error) {
		return ValidateBatch(ctx, pipe, req, input)
	}
}

// ValidateBatch audits every prompt concurrently and returns index-ordered
// results with the summary counts.
func ValidateBatch(
	ctx context.Context,
	pipe *pipeline.Pipeline,
	req *mcp.CallToolRequest,
	input ValidateBatchInput,
) (*mcp.CallToolResult, BatchOutcome, error) {
	results, summary := pipe.AuditBatch(ctx, input.Prompts)
	return nil, BatchOutcome{Results: results, Summary: summary}, nil
}
