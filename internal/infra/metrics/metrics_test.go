//go:build !integration

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gauge returns the value of the named series carrying label=value, or -1.
func gauge(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if label == "" || hasLabel(m, label, value) {
				return m.GetGauge().GetValue()
			}
		}
	}
	return -1
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, l := range m.GetLabel() {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegisterWith(reg)

	t.Run("should register the pool collectors with a private registry", func(t *testing.T) {
		SetDBPoolStats(DBPoolStats{Total: 10, Idle: 4, InUse: 6, Max: 20, EmptyAcquires: 3})

		if got := gauge(t, reg, "billing_db_pool_connections", "state", "total"); got != 10 {
			t.Errorf("total = %v, want 10", got)
		}
		if got := gauge(t, reg, "billing_db_pool_empty_acquires", "", ""); got != 3 {
			t.Errorf("empty acquires = %v, want 3", got)
		}
	})

	t.Run("should overwrite pool stats on every report", func(t *testing.T) {
		SetDBPoolStats(DBPoolStats{Total: 8, Idle: 2, InUse: 6, Max: 16, EmptyAcquires: 5})

		if got := gauge(t, reg, "billing_db_pool_connections", "state", "in_use"); got != 6 {
			t.Errorf("in_use = %v, want 6", got)
		}
		if got := gauge(t, reg, "billing_db_pool_connections", "state", "max"); got != 16 {
			t.Errorf("max = %v, want 16", got)
		}
		if got := gauge(t, reg, "billing_db_pool_empty_acquires", "", ""); got != 5 {
			t.Errorf("empty acquires = %v, want 5", got)
		}
	})
}
