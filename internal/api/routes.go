package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/prompt-gateway/internal/models"
)

// KnownRoutes is the fixed dispatch table, also reported in 404 bodies.
var KnownRoutes = []string{
	"POST /validate",
	"POST /validate-batch",
	"GET /health",
	"GET /config",
}

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.POST("/validate").
			To(handler.Validate).
			Doc("Validate a prompt and forward on approval").
			Metadata(restfulspec.KeyOpenAPITags, []string{"validate"}).
			Reads(models.ValidateRequest{}).
			Returns(200, "OK", nil).
			Returns(400, "Bad Request", models.ErrorResponse{}).
			Returns(422, "Prompt Blocked", models.DenialResponse{}).
			Returns(502, "Video Service Unavailable", models.ForwardErrorResponse{}).
			Returns(500, "Internal Server Error", models.PipelineErrorResponse{}))

	ws.
		Route(ws.POST("/validate-batch").
			To(handler.ValidateBatch).
			Doc("Validate a batch of prompts without forwarding").
			Metadata(restfulspec.KeyOpenAPITags, []string{"validate"}).
			Writes(models.BatchResponse{}).
			Returns(200, "OK", models.BatchResponse{}).
			Returns(400, "Bad Request", models.ErrorResponse{}).
			Returns(500, "Internal Server Error", models.ErrorResponse{}))

	ws.
		Route(ws.GET("/health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.GET("/config").
			To(handler.Config).
			Doc("Active policy configuration").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(ConfigResponse{}).
			Returns(200, "OK", ConfigResponse{}))

	container.Add(ws)
}
