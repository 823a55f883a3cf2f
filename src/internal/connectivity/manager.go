package connectivity

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/maksimkurb/keen-connectivity/src/internal/hashing"
	"github.com/maksimkurb/keen-connectivity/src/internal/log"
	"github.com/maksimkurb/keen-connectivity/src/internal/metrics"
)

// Options configures a Manager. The zero value is usable: binding and drain
// are disabled, hysteresis is DefaultHysteresis and interfaces come from netlink.
type Options struct {
	Hysteresis                 Hysteresis
	InterfaceBinding           bool
	DrainPostDNSRefresh        bool
	AlternateInterfacePrefixes []string
	InterfaceProvider          InterfaceProvider
	Metrics                    *metrics.Metrics
}

// Status is a point-in-time view of a manager.
type Status struct {
	ConfigurationKey    uint64         `json:"configuration_key"`
	PreferredNetwork    int64          `json:"preferred_network"`
	SocketMode          SocketMode     `json:"-"`
	SocketModeName      string         `json:"socket_mode"`
	FaultState          FaultState     `json:"fault_state"`
	InterfaceBinding    bool           `json:"interface_binding"`
	DrainPostDNSRefresh bool           `json:"drain_post_dns_refresh"`
	DrainSnapshotHosts  int            `json:"drain_snapshot_hosts"`
	Proxy               *ProxySettings `json:"-"`
}

// Manager tracks the preferred network for one set of collaborators, adapts
// upstream socket options after network faults and keeps the DNS cache and
// pooled connections consistent across network changes.
//
// All public methods are safe for concurrent use. Collaborator calls that can
// do work (host map iteration, refresh, drain) are made without holding the
// manager lock.
type Manager struct {
	epoch      *NetworkEpoch
	dnsCache   DNSCache
	cluster    ClusterManager
	interfaces InterfaceProvider
	metrics    *metrics.Metrics
	hysteresis Hysteresis
	prefixes   []string

	mu             sync.Mutex
	seen           EpochSnapshot
	mode           SocketMode
	faults         FaultState
	bindingEnabled bool
	drainEnabled   bool
	subscribed     bool
	subscription   Subscription
	refreshSeq     uint64
	proxy          *ProxySettings

	snapshot   atomic.Pointer[DrainSnapshot]
	subscriber *drainSubscriber
}

// NewManager creates a manager bound to epoch and its collaborators. The
// manager does not own the collaborators.
func NewManager(epoch *NetworkEpoch, dnsCache DNSCache, cluster ClusterManager, opts Options) *Manager {
	if opts.Hysteresis.InitialThreshold == 0 {
		opts.Hysteresis = DefaultHysteresis()
	}
	if opts.InterfaceProvider == nil {
		opts.InterfaceProvider = NetlinkInterfaceProvider{}
	}

	m := &Manager{
		epoch:          epoch,
		dnsCache:       dnsCache,
		cluster:        cluster,
		interfaces:     opts.InterfaceProvider,
		metrics:        opts.Metrics,
		hysteresis:     opts.Hysteresis,
		prefixes:       append([]string(nil), opts.AlternateInterfacePrefixes...),
		seen:           epoch.Snapshot(),
		mode:           SocketModeDefault,
		faults:         opts.Hysteresis.initialState(),
		bindingEnabled: opts.InterfaceBinding,
	}
	m.subscriber = &drainSubscriber{
		snapshot: &m.snapshot,
		cluster:  cluster,
		metrics:  opts.Metrics,
	}

	m.metrics.ObserveEpoch(m.seen.NetworkID, m.seen.Key)
	m.metrics.ObserveMode(int(m.mode), m.faults.SwitchThreshold)

	if opts.DrainPostDNSRefresh {
		m.SetDrainPostDNSRefreshEnabled(true)
	}
	return m
}

// Close cancels the DNS update subscription.
func (m *Manager) Close() {
	m.SetDrainPostDNSRefreshEnabled(false)
}

// syncEpochLocked resets per-epoch state when the shared epoch has moved
// since this manager last looked. A network change also returns the socket
// mode to default.
func (m *Manager) syncEpochLocked() EpochSnapshot {
	current := m.epoch.Snapshot()
	if current.Key == m.seen.Key {
		return current
	}

	if current.Generation != m.seen.Generation {
		if m.mode != SocketModeDefault {
			log.Infof("Preferred network changed to %d, returning to %s socket mode", current.NetworkID, SocketModeDefault)
		}
		m.mode = SocketModeDefault
	}
	m.faults = m.hysteresis.initialState()
	m.seen = current
	m.metrics.ObserveMode(int(m.mode), m.faults.SwitchThreshold)
	return current
}

// SetPreferredNetwork reports the preferred network to the shared epoch and
// returns the resulting configuration key.
func (m *Manager) SetPreferredNetwork(networkID int64) uint64 {
	before := m.epoch.ConfigurationKey()
	key := m.epoch.SetPreferredNetwork(networkID)
	if key != before {
		log.Infof("Preferred network set to %d (configuration key %d)", networkID, key)
		m.metrics.NetworkChanged()
	}
	m.metrics.ObserveEpoch(networkID, key)
	return key
}

// ConfigurationKey returns the current configuration key.
func (m *Manager) ConfigurationKey() uint64 {
	return m.epoch.ConfigurationKey()
}

// SocketMode returns the current socket mode.
func (m *Manager) SocketMode() SocketMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncEpochLocked()
	return m.mode
}

// FaultState returns the fault counters of the current epoch.
func (m *Manager) FaultState() FaultState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncEpochLocked()
	return m.faults
}

// SetInterfaceBindingEnabled enables or disables switching to an alternate
// interface. Disabling while bound to an alternate interface returns to the
// default mode and advances the epoch.
func (m *Manager) SetInterfaceBindingEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.syncEpochLocked()
	m.bindingEnabled = enabled
	if enabled || m.mode == SocketModeDefault {
		return
	}

	key, ok := m.epoch.advanceIfCurrent(current.Key)
	if !ok {
		m.syncEpochLocked()
		if m.mode == SocketModeDefault {
			return
		}
		key = m.epoch.AdvanceConfiguration()
	}
	m.mode = SocketModeDefault
	m.faults = m.hysteresis.initialState()
	m.seen = m.epoch.Snapshot()
	log.Infof("Interface binding disabled, returning to %s socket mode (configuration key %d)", m.mode, key)
	m.metrics.ObserveEpoch(m.seen.NetworkID, m.seen.Key)
	m.metrics.ObserveMode(int(m.mode), m.faults.SwitchThreshold)
}

// InterfaceBindingEnabled reports whether interface binding is enabled.
func (m *Manager) InterfaceBindingEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindingEnabled
}

// ReportNetworkUsage feeds the result of a request made under key into the
// fault engine. Reports made under a stale key, or while interface binding is
// disabled, are ignored. A success grows the fault budget; a fault that
// reaches the threshold switches the socket mode and advances the epoch.
func (m *Manager) ReportNetworkUsage(key uint64, fault bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.syncEpochLocked()
	if key != current.Key {
		log.Debugf("Ignoring network usage report for stale configuration key %d (current %d)", key, current.Key)
		m.metrics.UsageReported("stale")
		return
	}
	if !m.bindingEnabled {
		m.metrics.UsageReported("ignored")
		return
	}

	if !fault {
		m.faults.recordSuccess(m.hysteresis.Step)
		m.metrics.UsageReported("success")
		m.metrics.ObserveMode(int(m.mode), m.faults.SwitchThreshold)
		return
	}

	m.metrics.UsageReported("fault")
	if !m.faults.recordFault() {
		log.Debugf("Network fault %d/%d under configuration key %d",
			m.faults.ConsecutiveFaults, m.faults.SwitchThreshold, key)
		return
	}

	newKey, ok := m.epoch.advanceIfCurrent(key)
	if !ok {
		// The epoch moved between the check and the switch; the report is stale now.
		m.syncEpochLocked()
		return
	}

	previous := m.mode
	m.mode = m.mode.toggled()
	m.faults = m.hysteresis.initialState()
	m.seen = EpochSnapshot{NetworkID: current.NetworkID, Key: newKey, Generation: current.Generation}

	log.Infof("Network faults reached threshold, switching socket mode %s -> %s (configuration key %d)",
		previous, m.mode, newKey)
	m.metrics.ModeSwitched()
	m.metrics.ObserveEpoch(current.NetworkID, newKey)
	m.metrics.ObserveMode(int(m.mode), m.faults.SwitchThreshold)
}

// BuildUpstreamSocketOptions returns the socket options for new upstream
// connections under the current network and socket mode.
func (m *Manager) BuildUpstreamSocketOptions() []SocketOption {
	m.mu.Lock()
	current := m.syncEpochLocked()
	mode := m.mode
	m.mu.Unlock()

	return buildSocketOptions(m.interfaces, m.prefixes, current.NetworkID, mode)
}

// UpstreamSocketOptionsHash returns the checksum of the current option set.
func (m *Manager) UpstreamSocketOptionsHash() string {
	return hashing.ChecksumOf(m.BuildUpstreamSocketOptions())
}

// Dialer returns a dialer that applies the current upstream socket options.
func (m *Manager) Dialer() *net.Dialer {
	return NewDialer(m.BuildUpstreamSocketOptions())
}

// EnumerateInterfaces lists interface addresses of family that carry all
// required flags and none of the excluded ones.
func (m *Manager) EnumerateInterfaces(family int, required, excluded net.Flags) []InterfaceAddress {
	return EnumerateInterfaces(m.interfaces, family, required, excluded)
}

// ProxySettings returns the current proxy override, nil when there is none.
func (m *Manager) ProxySettings() *ProxySettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proxy
}

// SetProxySettings replaces the proxy override. Setting a value equal to the
// current one keeps the current pointer.
func (m *Manager) SetProxySettings(settings *ProxySettings) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proxy.Equal(settings) {
		return
	}
	m.proxy = settings
	if settings == nil {
		log.Infof("Proxy override removed")
	} else {
		log.Infof("Proxy override set to %s", settings)
	}
}

// Status returns a snapshot of the manager state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.syncEpochLocked()
	snapshotHosts := 0
	if snap := m.snapshot.Load(); snap != nil {
		snapshotHosts = snap.Len()
	}
	return Status{
		ConfigurationKey:    current.Key,
		PreferredNetwork:    current.NetworkID,
		SocketMode:          m.mode,
		SocketModeName:      m.mode.String(),
		FaultState:          m.faults,
		InterfaceBinding:    m.bindingEnabled,
		DrainPostDNSRefresh: m.drainEnabled,
		DrainSnapshotHosts:  snapshotHosts,
		Proxy:               m.proxy,
	}
}
