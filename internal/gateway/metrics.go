package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's prometheus instruments on a private
// registry so multiple servers (tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	chatTurns      *prometheus.CounterVec
	modelLatency   *prometheus.HistogramVec
	reasonRuns     *prometheus.CounterVec
	reasonIters    prometheus.Histogram
	factsExtracted prometheus.Counter
}

// NewMetrics builds and registers all instruments.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vboarder",
			Name:      "http_requests_total",
			Help:      "HTTP requests by handler and outcome.",
		}, []string{"handler", "status"}),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vboarder",
			Name:      "chat_turns_total",
			Help:      "Completed chat turns by agent role.",
		}, []string{"agent"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vboarder",
			Name:      "model_latency_seconds",
			Help:      "Wall time of model generation calls by slot.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"slot"}),
		reasonRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vboarder",
			Name:      "reasoning_runs_total",
			Help:      "Reasoning loop runs by terminal status.",
		}, []string{"status"}),
		reasonIters: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vboarder",
			Name:      "reasoning_iterations",
			Help:      "Iterations consumed per reasoning run.",
			Buckets:   []float64{1, 2, 3, 4, 5, 7, 10},
		}),
		factsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vboarder",
			Name:      "facts_extracted_total",
			Help:      "Shared facts captured from chat messages.",
		}),
	}

	reg.MustRegister(
		m.requests, m.chatTurns, m.modelLatency,
		m.reasonRuns, m.reasonIters, m.factsExtracted,
	)
	return m
}
