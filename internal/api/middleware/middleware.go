// Package middleware holds the container-level filters: preflight handling,
// access logging, panic containment, and the not-found handler.
package middleware

import (
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/prompt-gateway/internal/envelope"
	"github.com/povarna/prompt-gateway/internal/models"
	"github.com/rs/zerolog"
)

type PreflightResponse struct {
	Message string `json:"message"`
}

type NotFoundResponse struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	AvailableRoutes []string `json:"availableRoutes"`
}

// Preflight answers every OPTIONS request with 200 {"message":"OK"},
// including for paths that match no route.
func Preflight(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if req.Request.Method == http.MethodOptions {
		envelope.Write(resp, http.StatusOK, PreflightResponse{Message: "OK"})
		return
	}
	chain.ProcessFilter(req, resp)
}

// AccessLog returns a filter that logs one event per request. Logging is
// gated by the configured flag; the filter chain always runs.
func AccessLog(logger *zerolog.Logger, enabled bool) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()
		chain.ProcessFilter(req, resp)

		if !enabled {
			return
		}

		logger.Info().
			Str("method", req.Request.Method).
			Str("path", req.Request.URL.Path).
			Int("status", resp.StatusCode()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	}
}

// RecoverPanic converts any panic escaping the handlers into a generic 500
// envelope. No fault detail reaches the response body.
func RecoverPanic(logger *zerolog.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Interface("panic", r).
					Str("path", req.Request.URL.Path).
					Msg("recovered panic in request handler")
				envelope.Write(resp, http.StatusInternalServerError, models.ErrorResponse{
					Success: false,
					Message: "Internal server error",
				})
			}
		}()
		chain.ProcessFilter(req, resp)
	}
}

// NotFoundHandler is the container's service error handler. Unmatched
// method+path combinations collapse to a 404 listing the known routes.
func NotFoundHandler(routes []string, logger *zerolog.Logger) func(restful.ServiceError, *restful.Request, *restful.Response) {
	return func(serviceError restful.ServiceError, req *restful.Request, resp *restful.Response) {
		if serviceError.Code == http.StatusNotFound || serviceError.Code == http.StatusMethodNotAllowed {
			envelope.Write(resp, http.StatusNotFound, NotFoundResponse{
				Success:         false,
				Message:         "Not found",
				AvailableRoutes: routes,
			})
			return
		}

		logger.Warn().Int("code", serviceError.Code).Str("message", serviceError.Message).Msg("service error")
		envelope.Write(resp, serviceError.Code, models.ErrorResponse{
			Success: false,
			Message: serviceError.Message,
		})
	}
}
