package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}

func TestMetrics_Observations(t *testing.T) {
	m := NewMetrics()

	m.ObserveEpoch(4, 17)
	m.ObserveMode(1, 3)
	m.ModeSwitched()
	m.UsageReported("stale")
	m.UsageReported("stale")
	m.DNSRefreshed("refresh_drain", 3)
	m.DNSResolved("completed", true)
	m.Drained(2)

	if got := testutil.ToFloat64(m.ConfigurationKey); got != 17 {
		t.Errorf("Expected configuration key 17, got %v", got)
	}
	if got := testutil.ToFloat64(m.SocketMode); got != 1 {
		t.Errorf("Expected socket mode 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.UsageReports.WithLabelValues("stale")); got != 2 {
		t.Errorf("Expected 2 stale reports, got %v", got)
	}
	if got := testutil.ToFloat64(m.DNSSnapshotHosts); got != 3 {
		t.Errorf("Expected 3 snapshot hosts, got %v", got)
	}
	if got := testutil.ToFloat64(m.ConnectionsDrained); got != 2 {
		t.Errorf("Expected 2 drained connections, got %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.ObserveEpoch(1, 1)
	m.NetworkChanged()
	m.ObserveMode(0, 1)
	m.ModeSwitched()
	m.UsageReported("fault")
	m.DNSRefreshed("refresh", 0)
	m.DNSResolved("failure", false)
	m.Drained(1)
}
