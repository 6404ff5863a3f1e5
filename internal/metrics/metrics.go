// Package metrics provides Prometheus instrumentation for the prompt
// gateway: decision counters, moderation latency, and forwarding outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ValidationsTotal counts moderation decisions, labeled by outcome:
	// "allowed", "blocked", or "error" (fail-closed service fault).
	ValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_validations_total",
		Help: "Total number of moderation decisions",
	}, []string{"decision"})

	// ModerationLatency records guardrail call latency in seconds.
	ModerationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_moderation_latency_seconds",
		Help:    "Moderation service call latency in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	// ForwardsTotal counts requests relayed downstream, labeled by result:
	// "relayed" or "unavailable".
	ForwardsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_forwards_total",
		Help: "Total number of requests forwarded to the video service",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		ValidationsTotal,
		ModerationLatency,
		ForwardsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
