// Package pipeline implements the gateway's decision flow: shape checks,
// moderation, and either forwarding (single mode) or ordered aggregation
// (batch mode). Every fault is contained here and leaves as an envelope.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/povarna/prompt-gateway/internal/config"
	"github.com/povarna/prompt-gateway/internal/metrics"
	"github.com/povarna/prompt-gateway/internal/models"
	"github.com/rs/zerolog"
)

const previewLimit = 100

// Evaluator is the moderation collaborator. Implementations must fail
// closed: a fault comes back as a blocked verdict, never an error.
type Evaluator interface {
	Evaluate(ctx context.Context, text string) models.Verdict
}

// Forwarder relays an approved request to the downstream service.
type Forwarder interface {
	Forward(ctx context.Context, body []byte, authorization string) models.Envelope
}

type Pipeline struct {
	evaluator Evaluator
	forwarder Forwarder
	messages  config.Messages
	logger    *zerolog.Logger
}

func New(evaluator Evaluator, forwarder Forwarder, messages config.Messages, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		evaluator: evaluator,
		forwarder: forwarder,
		messages:  messages,
		logger:    logger,
	}
}

// ValidateAndRoute runs the single-prompt flow over the raw inbound body.
// Shape violations are rejected before any moderation call is made.
func (p *Pipeline) ValidateAndRoute(ctx context.Context, body []byte, authorization string) (env models.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("validation pipeline panicked")
			env = p.singleInternalError()
		}
	}()

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		p.logger.Error().Err(err).Msg("failed to parse request body")
		return p.singleInternalError()
	}

	raw, ok := fields["prompt"]
	if !ok {
		return badRequest("prompt is required and must be a string")
	}
	prompt, ok := raw.(string)
	if !ok {
		return badRequest("prompt is required and must be a string")
	}
	if prompt == "" {
		return badRequest("prompt cannot be empty")
	}

	verdict := p.evaluate(ctx, prompt)
	if !verdict.Allowed {
		return models.Envelope{
			StatusCode: http.StatusUnprocessableEntity,
			Payload: models.DenialResponse{
				Success: false,
				Allowed: false,
				Message: p.messages.Blocked,
				Details: models.DenialDetails{
					Reason:      verdict.Reason,
					Assessments: assessmentsOrEmpty(verdict.Details),
				},
			},
		}
	}

	return p.forwarder.Forward(ctx, body, authorization)
}

// ValidateBatch runs the moderation check over every prompt concurrently and
// reassembles results in input order. Batch mode never forwards downstream.
func (p *Pipeline) ValidateBatch(ctx context.Context, body []byte) (env models.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("batch pipeline panicked")
			env = p.internalError(p.messages.BatchError)
		}
	}()

	var fields struct {
		Prompts json.RawMessage `json:"prompts"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		p.logger.Error().Err(err).Msg("failed to parse batch request body")
		return p.internalError(p.messages.BatchError)
	}

	// A missing key and an explicit null both fail the shape check; an
	// unmarshal into a nil slice would otherwise let null through.
	if fields.Prompts == nil || string(fields.Prompts) == "null" {
		return badRequest("prompts is required and must be an array")
	}
	var prompts []any
	if json.Unmarshal(fields.Prompts, &prompts) != nil {
		return badRequest("prompts is required and must be an array")
	}

	results, summary := p.auditItems(ctx, prompts)

	return models.Envelope{
		StatusCode: http.StatusOK,
		Payload: models.BatchResponse{
			Success: true,
			Results: results,
			Summary: summary,
		},
	}
}

// Audit evaluates a single prompt without forwarding. Used by the stream
// worker and the MCP tools.
func (p *Pipeline) Audit(ctx context.Context, prompt string) models.Verdict {
	return p.evaluate(ctx, prompt)
}

// AuditBatch is the typed batch entry point for non-HTTP callers.
func (p *Pipeline) AuditBatch(ctx context.Context, prompts []string) ([]models.BatchItemResult, models.BatchSummary) {
	items := make([]any, len(prompts))
	for i, prompt := range prompts {
		items[i] = prompt
	}
	return p.auditItems(ctx, items)
}

// auditItems fans out one moderation call per item and writes each result
// into its own slot, so the output order matches the input order no matter
// when the calls complete.
func (p *Pipeline) auditItems(ctx context.Context, items []any) ([]models.BatchItemResult, models.BatchSummary) {
	results := make([]models.BatchItemResult, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(index int, item any) {
			defer wg.Done()
			results[index] = p.auditItem(ctx, index, item)
		}(i, item)
	}

	wg.Wait()

	summary := models.BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Allowed {
			summary.Allowed++
		} else {
			summary.Blocked++
		}
	}

	return results, summary
}

func (p *Pipeline) auditItem(ctx context.Context, index int, item any) models.BatchItemResult {
	prompt, ok := item.(string)
	if !ok {
		return models.BatchItemResult{
			Index:         index,
			PromptPreview: preview(fmt.Sprint(item)),
			Allowed:       false,
			Reason:        "prompt must be a string",
		}
	}

	verdict := p.evaluate(ctx, prompt)
	return models.BatchItemResult{
		Index:         index,
		PromptPreview: preview(prompt),
		Allowed:       verdict.Allowed,
		Reason:        verdict.Reason,
	}
}

func (p *Pipeline) evaluate(ctx context.Context, prompt string) models.Verdict {
	start := time.Now()
	verdict := p.evaluator.Evaluate(ctx, prompt)
	metrics.ModerationLatency.Observe(time.Since(start).Seconds())
	metrics.ValidationsTotal.WithLabelValues(decisionLabel(verdict)).Inc()

	p.logger.Info().
		Bool("allowed", verdict.Allowed).
		Str("reason", verdict.Reason).
		Msg("moderation decision")

	return verdict
}

func decisionLabel(verdict models.Verdict) string {
	switch {
	case verdict.Allowed:
		return "allowed"
	case verdict.ErrorNote != "":
		return "error"
	default:
		return "blocked"
	}
}

func badRequest(message string) models.Envelope {
	return models.Envelope{
		StatusCode: http.StatusBadRequest,
		Payload:    models.ErrorResponse{Success: false, Message: message},
	}
}

func (p *Pipeline) singleInternalError() models.Envelope {
	return models.Envelope{
		StatusCode: http.StatusInternalServerError,
		Payload: models.PipelineErrorResponse{
			Success: false,
			Allowed: false,
			Message: p.messages.InternalError,
		},
	}
}

func (p *Pipeline) internalError(message string) models.Envelope {
	return models.Envelope{
		StatusCode: http.StatusInternalServerError,
		Payload:    models.ErrorResponse{Success: false, Message: message},
	}
}

func assessmentsOrEmpty(assessments []models.Assessment) []models.Assessment {
	if assessments == nil {
		return []models.Assessment{}
	}
	return assessments
}

func preview(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= previewLimit {
		return prompt
	}
	return string(runes[:previewLimit]) + "..."
}
