package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// PrometheusSink implements the Sink interface using Prometheus metrics
// registered on the default registry.
type PrometheusSink struct {
	requestsTotal   *prometheus.CounterVec
	admissionDenied *prometheus.CounterVec
	trackerRequests *prometheus.CounterVec
	trackerDuration *prometheus.HistogramVec
	callerTokens    *prometheus.CounterVec
}

// NewPrometheusSink creates a new Prometheus-based metrics sink.
// Create at most one per process; duplicate registration panics.
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_requests_total",
				Help: "Total number of handled chat requests by caller tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		admissionDenied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_admission_denied_total",
				Help: "Total number of requests refused by the admission controller",
			},
			[]string{"tier"},
		),
		trackerRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_requests_total",
				Help: "Total number of tracker GraphQL calls by operation and status",
			},
			[]string{"operation", "status"},
		),
		trackerDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracker_request_duration_seconds",
				Help:    "Duration of tracker GraphQL calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		callerTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_caller_tokens_total",
				Help: "Total number of model tokens consumed per caller",
			},
			[]string{"caller", "type"},
		),
	}
}

// ObserveRequest counts one handled message by caller tier and outcome.
func (p *PrometheusSink) ObserveRequest(tier, outcome string) {
	p.requestsTotal.WithLabelValues(tier, outcome).Inc()
}

// IncAdmissionDenied counts a request refused by the admission controller.
func (p *PrometheusSink) IncAdmissionDenied(tier string) {
	p.admissionDenied.WithLabelValues(tier).Inc()
}

// ObserveTracker records one tracker round trip.
func (p *PrometheusSink) ObserveTracker(operation string, err error, elapsed time.Duration) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	p.trackerRequests.WithLabelValues(operation, status).Inc()
	p.trackerDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// AddRunTokens accumulates an agent run's token usage against the caller.
func (p *PrometheusSink) AddRunTokens(callerID string, promptTokens, completionTokens int) {
	p.callerTokens.WithLabelValues(callerID, "prompt").Add(float64(promptTokens))
	p.callerTokens.WithLabelValues(callerID, "completion").Add(float64(completionTokens))
}
