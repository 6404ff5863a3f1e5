package api

import (
	"io"
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/prompt-gateway/internal/config"
	"github.com/povarna/prompt-gateway/internal/envelope"
	"github.com/povarna/prompt-gateway/internal/models"
	"github.com/povarna/prompt-gateway/internal/pipeline"
	"github.com/rs/zerolog"
)

// ServiceInfo is the read-only configuration snapshot reported by the
// health and config endpoints.
type ServiceInfo struct {
	GuardrailID      string
	GuardrailVersion string
	LogRequests      bool
	Messages         config.Messages
}

type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	GuardrailID      string `json:"guardrailId"`
	GuardrailVersion string `json:"guardrailVersion"`
	Timestamp        string `json:"timestamp"`
}

type ConfigResponse struct {
	GuardrailID      string          `json:"guardrailId"`
	GuardrailVersion string          `json:"guardrailVersion"`
	LogRequests      bool            `json:"logRequests"`
	Messages         config.Messages `json:"messages"`
}

type Handler struct {
	pipeline *pipeline.Pipeline
	info     ServiceInfo
	logger   *zerolog.Logger
}

func NewHandler(pipe *pipeline.Pipeline, info ServiceInfo, logger *zerolog.Logger) *Handler {
	return &Handler{
		pipeline: pipe,
		info:     info,
		logger:   logger,
	}
}

// POST /validate
// Body: {"prompt": "..."}
// Moderates the prompt and, on approval, relays the body downstream.
func (h *Handler) Validate(req *restful.Request, resp *restful.Response) {
	body, err := io.ReadAll(req.Request.Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read request body")
		envelope.Write(resp, http.StatusInternalServerError, models.PipelineErrorResponse{
			Success: false,
			Allowed: false,
			Message: h.info.Messages.InternalError,
		})
		return
	}

	authorization := req.Request.Header.Get("Authorization")

	env := h.pipeline.ValidateAndRoute(req.Request.Context(), body, authorization)
	envelope.Write(resp, env.StatusCode, env.Payload)
}

// POST /validate-batch
// Body: {"prompts": ["...", ...]}
// Dry-run moderation over every prompt; never forwards downstream.
func (h *Handler) ValidateBatch(req *restful.Request, resp *restful.Response) {
	body, err := io.ReadAll(req.Request.Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read request body")
		envelope.Write(resp, http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Message: h.info.Messages.BatchError,
		})
		return
	}

	env := h.pipeline.ValidateBatch(req.Request.Context(), body)
	envelope.Write(resp, env.StatusCode, env.Payload)
}

// GET /health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	envelope.Write(resp, http.StatusOK, HealthResponse{
		Status:           "ok",
		Service:          "prompt-gateway",
		GuardrailID:      h.info.GuardrailID,
		GuardrailVersion: h.info.GuardrailVersion,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /config
// Reports the active policy configuration. The downstream endpoint and
// credentials are never included in the payload.
func (h *Handler) Config(req *restful.Request, resp *restful.Response) {
	envelope.Write(resp, http.StatusOK, ConfigResponse{
		GuardrailID:      h.info.GuardrailID,
		GuardrailVersion: h.info.GuardrailVersion,
		LogRequests:      h.info.LogRequests,
		Messages:         h.info.Messages,
	})
}
