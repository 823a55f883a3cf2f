// Package metrics exposes Prometheus metrics for the connectivity manager.
//
// All methods are safe on a nil *Metrics, so components can be built without
// a registry in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "keen_connectivity"

// Metrics holds all connectivity Prometheus metrics
type Metrics struct {
	// Epoch metrics
	ConfigurationKey prometheus.Gauge
	PreferredNetwork prometheus.Gauge
	NetworkChanges   prometheus.Counter

	// Fault hysteresis metrics
	SocketMode      prometheus.Gauge
	ModeSwitches    prometheus.Counter
	UsageReports    *prometheus.CounterVec
	SwitchThreshold prometheus.Gauge

	// DNS refresh metrics
	DNSRefreshes       *prometheus.CounterVec
	DNSSnapshotHosts   prometheus.Gauge
	DNSResolutions     *prometheus.CounterVec
	ConnectionsDrained prometheus.Counter
}

// NewMetrics creates a new set of connectivity metrics. They are not registered.
func NewMetrics() *Metrics {
	return &Metrics{
		ConfigurationKey: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "configuration_key",
			Help:      "Current network configuration key",
		}),
		PreferredNetwork: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "preferred_network",
			Help:      "Identifier of the preferred network",
		}),
		NetworkChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_changes_total",
			Help:      "Total number of accepted preferred network changes",
		}),
		SocketMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "socket_mode",
			Help:      "Current socket mode (0 = default, 1 = alternate bound interface)",
		}),
		ModeSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_mode_switches_total",
			Help:      "Total number of socket mode switches caused by network faults",
		}),
		UsageReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_usage_reports_total",
			Help:      "Network usage reports by result",
		}, []string{"result"}),
		SwitchThreshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fault_switch_threshold",
			Help:      "Consecutive faults currently required to switch socket mode",
		}),
		DNSRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_refreshes_total",
			Help:      "DNS refresh requests by result",
		}, []string{"result"}),
		DNSSnapshotHosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dns_snapshot_hosts",
			Help:      "Number of hosts in the live DNS drain snapshot",
		}),
		DNSResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_resolutions_total",
			Help:      "DNS resolution completions seen by the drain subscription",
		}, []string{"status", "drained"}),
		ConnectionsDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_drained_total",
			Help:      "Total number of connections closed by host drains",
		}),
	}
}

// Register registers all metrics with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.ConfigurationKey,
		m.PreferredNetwork,
		m.NetworkChanges,
		m.SocketMode,
		m.ModeSwitches,
		m.UsageReports,
		m.SwitchThreshold,
		m.DNSRefreshes,
		m.DNSSnapshotHosts,
		m.DNSResolutions,
		m.ConnectionsDrained,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveEpoch records the current epoch.
func (m *Metrics) ObserveEpoch(networkID int64, key uint64) {
	if m == nil {
		return
	}
	m.PreferredNetwork.Set(float64(networkID))
	m.ConfigurationKey.Set(float64(key))
}

// NetworkChanged counts an accepted preferred network change.
func (m *Metrics) NetworkChanged() {
	if m == nil {
		return
	}
	m.NetworkChanges.Inc()
}

// ObserveMode records the socket mode and the current switch threshold.
func (m *Metrics) ObserveMode(mode int, threshold uint32) {
	if m == nil {
		return
	}
	m.SocketMode.Set(float64(mode))
	m.SwitchThreshold.Set(float64(threshold))
}

// ModeSwitched counts a fault-triggered mode switch.
func (m *Metrics) ModeSwitched() {
	if m == nil {
		return
	}
	m.ModeSwitches.Inc()
}

// UsageReported counts a usage report. result is one of stale, ignored, success, fault.
func (m *Metrics) UsageReported(result string) {
	if m == nil {
		return
	}
	m.UsageReports.WithLabelValues(result).Inc()
}

// DNSRefreshed counts a DNS refresh request. result is one of stale, refresh, refresh_drain, superseded.
func (m *Metrics) DNSRefreshed(result string, snapshotHosts int) {
	if m == nil {
		return
	}
	m.DNSRefreshes.WithLabelValues(result).Inc()
	if result == "refresh_drain" {
		m.DNSSnapshotHosts.Set(float64(snapshotHosts))
	}
}

// DNSResolved counts a resolution completion seen by the drain subscription.
func (m *Metrics) DNSResolved(status string, drained bool) {
	if m == nil {
		return
	}
	d := "false"
	if drained {
		d = "true"
	}
	m.DNSResolutions.WithLabelValues(status, d).Inc()
}

// Drained counts connections closed by a drain.
func (m *Metrics) Drained(n int) {
	if m == nil {
		return
	}
	m.ConnectionsDrained.Add(float64(n))
}
