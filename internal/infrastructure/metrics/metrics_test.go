package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.SettlementsFinalized == nil || m.CalculationDuration == nil || m.DBRetries == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.SettlementsCreated.Inc()
	m.CalculationWarnings.WithLabelValues("NO_OCCUPANCY").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.SettlementsCreated); got != 1 {
		t.Fatalf("expected 1 created settlement, got %v", got)
	}
}

func TestObserveError(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveError("finalize", "invalid_state")
	m.ObserveError("finalize", "invalid_state")

	if got := testutil.ToFloat64(m.SettlementErrors.WithLabelValues("finalize", "invalid_state")); got != 2 {
		t.Fatalf("expected 2 errors, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveError("finalize", "internal")
}
