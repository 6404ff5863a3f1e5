// Package videoapi relays approved requests to the downstream video
// generation service and normalizes its response into the gateway envelope.
package videoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/povarna/prompt-gateway/internal/metrics"
	"github.com/povarna/prompt-gateway/internal/models"
	"github.com/rs/zerolog"
)

const (
	unavailableMessage = "Video service unavailable"
	unavailableError   = "Failed to connect to video generation service"
)

type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zerolog.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger *zerolog.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("video API endpoint is required")
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Forward POSTs the inbound body to the downstream endpoint byte-for-byte.
// The body is never re-serialized from a parsed structure; its shape is
// opaque to the gateway. Only the Authorization header is propagated.
func (c *Client) Forward(ctx context.Context, body []byte, authorization string) models.Envelope {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to build downstream request")
		return c.unavailable()
	}

	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", c.endpoint).Msg("downstream call failed")
		return c.unavailable()
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to read downstream response")
		return c.unavailable()
	}

	metrics.ForwardsTotal.WithLabelValues("relayed").Inc()

	// Valid JSON is relayed untouched; anything else is wrapped so the
	// gateway always answers with a JSON body.
	if json.Valid(raw) {
		return models.Envelope{StatusCode: resp.StatusCode, Payload: json.RawMessage(raw)}
	}

	return models.Envelope{
		StatusCode: resp.StatusCode,
		Payload:    map[string]string{"message": string(raw)},
	}
}

func (c *Client) unavailable() models.Envelope {
	metrics.ForwardsTotal.WithLabelValues("unavailable").Inc()
	return models.Envelope{
		StatusCode: http.StatusBadGateway,
		Payload: models.ForwardErrorResponse{
			Success: false,
			Message: unavailableMessage,
			Error:   unavailableError,
		},
	}
}
