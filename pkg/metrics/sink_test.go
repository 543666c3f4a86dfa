package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNopSinkDiscardsObservations(t *testing.T) {
	sink := Nop()
	sink.ObserveRequest("free", "ok")
	sink.IncAdmissionDenied("free")
	sink.ObserveTracker("issueByIdentifier", nil, time.Millisecond)
	sink.AddRunTokens("U1", 100, 25)
}

// A single process may register the Prometheus collectors only once, so
// every assertion against them lives in this test.
func TestPrometheusSinkRecords(t *testing.T) {
	sink := NewPrometheusSink()

	sink.ObserveRequest("free", "ok")
	sink.ObserveRequest("free", "ok")
	sink.ObserveRequest("admin", "failed")
	if got := testutil.ToFloat64(sink.requestsTotal.WithLabelValues("free", "ok")); got != 2 {
		t.Errorf("requests{free,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.requestsTotal.WithLabelValues("admin", "failed")); got != 1 {
		t.Errorf("requests{admin,failed} = %v, want 1", got)
	}

	sink.IncAdmissionDenied("free")
	if got := testutil.ToFloat64(sink.admissionDenied.WithLabelValues("free")); got != 1 {
		t.Errorf("admission denied{free} = %v, want 1", got)
	}

	sink.ObserveTracker("issueByIdentifier", nil, 20*time.Millisecond)
	sink.ObserveTracker("issueByIdentifier", errors.New("http 502"), 5*time.Millisecond)
	if got := testutil.ToFloat64(sink.trackerRequests.WithLabelValues("issueByIdentifier", "success")); got != 1 {
		t.Errorf("tracker{issueByIdentifier,success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.trackerRequests.WithLabelValues("issueByIdentifier", "error")); got != 1 {
		t.Errorf("tracker{issueByIdentifier,error} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(sink.trackerDuration); got == 0 {
		t.Error("tracker duration histogram recorded nothing")
	}

	sink.AddRunTokens("U1", 100, 25)
	sink.AddRunTokens("U1", 40, 10)
	if got := testutil.ToFloat64(sink.callerTokens.WithLabelValues("U1", "prompt")); got != 140 {
		t.Errorf("caller tokens{U1,prompt} = %v, want 140", got)
	}
	if got := testutil.ToFloat64(sink.callerTokens.WithLabelValues("U1", "completion")); got != 35 {
		t.Errorf("caller tokens{U1,completion} = %v, want 35", got)
	}
}
