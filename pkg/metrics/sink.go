// Package metrics provides the bot's request-level Prometheus collectors,
// the scrape and health endpoints, and the usage report query service.
package metrics

import "time"

// Sink defines the interface for recording bot pipeline metrics.
type Sink interface {
	// ObserveRequest counts one handled message by caller tier and outcome.
	ObserveRequest(tier, outcome string)

	// IncAdmissionDenied counts a request refused by the admission
	// controller before any model or tracker work.
	IncAdmissionDenied(tier string)

	// ObserveTracker records one tracker round trip. The signature matches
	// tracker.ObserveFunc so a method value wires directly into
	// Client.WithObserver.
	ObserveTracker(operation string, err error, elapsed time.Duration)

	// AddRunTokens accumulates an agent run's token usage against the
	// caller that triggered it.
	AddRunTokens(callerID string, promptTokens, completionTokens int)
}

// NoopSink implements Sink with no-op behavior for when metrics are
// disabled.
type NoopSink struct{}

// Nop returns a no-op sink that discards all observations.
func Nop() Sink {
	return &NoopSink{}
}

// ObserveRequest does nothing in the no-op sink.
func (n *NoopSink) ObserveRequest(_, _ string) {}

// IncAdmissionDenied does nothing in the no-op sink.
func (n *NoopSink) IncAdmissionDenied(_ string) {}

// ObserveTracker does nothing in the no-op sink.
func (n *NoopSink) ObserveTracker(_ string, _ error, _ time.Duration) {}

// AddRunTokens does nothing in the no-op sink.
func (n *NoopSink) AddRunTokens(_ string, _, _ int) {}
