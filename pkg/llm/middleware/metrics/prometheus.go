package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder is a Recorder backed by collectors on the default
// Prometheus registry.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	costTotal       *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	throttleTotal   *prometheus.CounterVec
	queueWaitTime   *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the LLM collectors and returns a recorder
// over them. Create at most one per process; duplicate registration panics.
func NewPrometheusRecorder() *PrometheusRecorder {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return promauto.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: prometheus.DefBuckets,
		}, labels)
	}

	return &PrometheusRecorder{
		requestsTotal:   counter("llm_requests_total", "LLM requests by model, status and error type", "model", "status", "error_type"),
		tokensTotal:     counter("llm_tokens_total", "Tokens consumed by LLM requests", "model", "type"),
		costTotal:       counter("llm_cost_usd_total", "Estimated LLM spend in USD", "model"),
		requestDuration: histogram("llm_request_duration_seconds", "LLM request latency in seconds", "model"),
		throttleTotal:   counter("llm_throttle_total", "LLM requests throttled by the local rate limiter", "model", "reason"),
		queueWaitTime:   histogram("llm_queue_wait_duration_seconds", "Time spent queued behind the rate limiter", "model"),
	}
}

// ObserveRequest records one finished LLM call. Token and cost counters only
// move on success; failed calls never report usable usage numbers.
func (p *PrometheusRecorder) ObserveRequest(
	model string,
	promptTokens, completionTokens int,
	cost float64,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	p.requestsTotal.WithLabelValues(model, status, errorType).Inc()
	p.requestDuration.WithLabelValues(model).Observe(duration.Seconds())

	if success {
		p.tokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
		p.costTotal.WithLabelValues(model).Add(cost)
	}
}

// IncThrottle counts a request held back by the rate limiter.
func (p *PrometheusRecorder) IncThrottle(model, reason string) {
	p.throttleTotal.WithLabelValues(model, reason).Inc()
}

// ObserveQueueWait records how long a request waited for limiter capacity.
func (p *PrometheusRecorder) ObserveQueueWait(model string, duration time.Duration) {
	p.queueWaitTime.WithLabelValues(model).Observe(duration.Seconds())
}
