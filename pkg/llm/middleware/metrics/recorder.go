// Package metrics instruments LLM client calls: request counts, token
// usage, estimated spend and latency.
package metrics

import "time"

// Recorder receives the measurements taken by the middleware. The
// Prometheus implementation is the production one; tests substitute
// their own captures.
type Recorder interface {
	// ObserveRequest records one finished LLM call with its outcome.
	ObserveRequest(
		model string,
		promptTokens, completionTokens int,
		cost float64,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// IncThrottle counts a request held back by the rate limiter.
	IncThrottle(model, reason string)

	// ObserveQueueWait records how long a request waited for limiter capacity.
	ObserveQueueWait(model string, duration time.Duration)
}

// NoopRecorder discards every measurement. Used when metrics are disabled.
type NoopRecorder struct{}

// Nop returns the discarding recorder.
func Nop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveRequest(_ string, _, _ int, _ float64, _ bool, _ string, _ time.Duration) {
}

func (n *NoopRecorder) IncThrottle(_, _ string) {}

func (n *NoopRecorder) ObserveQueueWait(_ string, _ time.Duration) {}
