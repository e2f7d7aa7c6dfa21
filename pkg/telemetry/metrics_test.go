package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/pkg/diagnostics"
)

func TestMetrics_SetComponentStateRecordsRank(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetComponentState("db", diagnostics.Running)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, float64(diagnostics.Running), findGaugeValue(t, families, "loom_lifecycle_component_state", "db"))
}

func TestMetrics_ObserveDispatchIncrementsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveDispatch("GET", "/widgets/:id", "200", 0.012)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "loom_dispatch_duration_seconds" {
			found = true
			require.Len(t, f.Metric, 1)
			assert.Equal(t, uint64(1), f.Metric[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found, "expected loom_dispatch_duration_seconds family")
}

func TestMetrics_RecordRouteOutcomeIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRouteOutcome("not_found")
	m.RecordRouteOutcome("not_found")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, float64(2), findCounterValue(t, families, "loom_dispatch_route_matches_total", "not_found"))
}

func findGaugeValue(t *testing.T, families []*dto.MetricFamily, name, label string) float64 {
	t.Helper()
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.Metric {
			for _, lp := range metric.Label {
				if lp.GetValue() == label {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with label %s not found", name, label)
	return 0
}

func findCounterValue(t *testing.T, families []*dto.MetricFamily, name, label string) float64 {
	t.Helper()
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.Metric {
			for _, lp := range metric.Label {
				if lp.GetValue() == label {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with label %s not found", name, label)
	return 0
}
