// Package envelope is the single place that shapes outbound responses. Every
// handler, filter and error path writes through it so the header set stays
// identical across routes.
package envelope

import (
	"github.com/emicklei/go-restful/v3"
)

// Headers returns the fixed header set attached to every gateway response.
func Headers() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type, Authorization",
		"Access-Control-Allow-Methods": "POST, GET, OPTIONS",
	}
}

// Write stamps the fixed headers and writes payload as the JSON body.
func Write(resp *restful.Response, status int, payload any) {
	for name, value := range Headers() {
		resp.Header().Set(name, value)
	}
	resp.WriteHeaderAndJson(status, payload, restful.MIME_JSON)
}
