package connectivity

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/maksimkurb/keen-connectivity/src/internal/log"
	"github.com/maksimkurb/keen-connectivity/src/internal/metrics"
)

// DrainSnapshot is the set of hosts that were cached when a refresh was
// requested under IssuedKey. It is immutable once built.
type DrainSnapshot struct {
	IssuedKey uint64
	hosts     map[string]struct{}
}

// NewDrainSnapshot builds a snapshot from host names.
func NewDrainSnapshot(issuedKey uint64, hosts []string) *DrainSnapshot {
	s := &DrainSnapshot{
		IssuedKey: issuedKey,
		hosts:     make(map[string]struct{}, len(hosts)),
	}
	for _, h := range hosts {
		s.hosts[normalizeHost(h)] = struct{}{}
	}
	return s
}

// Contains reports whether host was cached when the snapshot was taken.
func (s *DrainSnapshot) Contains(host string) bool {
	_, ok := s.hosts[normalizeHost(host)]
	return ok
}

// Len returns the number of hosts in the snapshot.
func (s *DrainSnapshot) Len() int {
	return len(s.hosts)
}

// Hosts returns the snapshot hosts in sorted order.
func (s *DrainSnapshot) Hosts() []string {
	hosts := make([]string, 0, len(s.hosts))
	for h := range s.hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// drainSubscriber is registered with the DNS cache. It only reads the live
// snapshot through an atomic pointer and never takes the manager lock, so the
// cache may call it from any goroutine.
type drainSubscriber struct {
	snapshot *atomic.Pointer[DrainSnapshot]
	cluster  ClusterManager
	metrics  *metrics.Metrics
}

func (d *drainSubscriber) OnDNSResolutionComplete(host string, _ HostInfo, status ResolutionStatus) {
	snap := d.snapshot.Load()
	if snap == nil || !snap.Contains(host) {
		// Hosts that were not cached before the refresh have no connections to drain.
		d.metrics.DNSResolved(status.String(), false)
		return
	}

	log.Debugf("Draining connections to %s after DNS refresh (%s, configuration key %d)", host, status, snap.IssuedKey)
	target := normalizeHost(host)
	d.cluster.DrainConnections(func(h string) bool {
		return normalizeHost(h) == target
	})
	d.metrics.DNSResolved(status.String(), true)
}

// SetDrainPostDNSRefreshEnabled toggles draining of previously cached hosts
// after a DNS refresh. Enabling registers the DNS update subscription at once;
// disabling cancels it and drops the live snapshot.
func (m *Manager) SetDrainPostDNSRefreshEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.drainEnabled = enabled
	if enabled {
		m.ensureSubscribedLocked()
		return
	}

	if m.subscribed {
		if m.subscription != nil {
			m.subscription.Cancel()
		}
		m.subscription = nil
		m.subscribed = false
		log.Debugf("DNS update subscription cancelled")
	}
	m.snapshot.Store(nil)
}

// DrainPostDNSRefreshEnabled reports whether post-refresh draining is enabled.
func (m *Manager) DrainPostDNSRefreshEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drainEnabled
}

// ensureSubscribedLocked registers the drain subscriber once. Registration
// must not call back into the manager synchronously.
func (m *Manager) ensureSubscribedLocked() {
	if m.subscribed {
		return
	}
	m.subscription = m.dnsCache.AddUpdateCallbacks(m.subscriber)
	m.subscribed = true
	log.Debugf("DNS update subscription registered")
}

// RefreshDNS forces a refresh of every cached host if key is current. With
// drain set and the drain policy enabled, the hosts cached right now are
// snapshotted first; connections to those hosts are drained as their new
// resolutions complete.
func (m *Manager) RefreshDNS(key uint64, drain bool) {
	m.mu.Lock()
	current := m.syncEpochLocked()
	if key != current.Key {
		m.mu.Unlock()
		log.Debugf("Ignoring DNS refresh for stale configuration key %d (current %d)", key, current.Key)
		m.metrics.DNSRefreshed("stale", 0)
		return
	}
	snapshotting := drain && m.drainEnabled
	var seq uint64
	if snapshotting {
		m.ensureSubscribedLocked()
		m.refreshSeq++
		seq = m.refreshSeq
	}
	m.mu.Unlock()

	if !snapshotting {
		log.Debugf("Refreshing DNS cache (configuration key %d)", key)
		m.metrics.DNSRefreshed("refresh", 0)
		m.dnsCache.ForceRefreshHosts()
		return
	}

	var hosts []string
	m.dnsCache.IterateHostMap(func(host string, _ HostInfo) {
		hosts = append(hosts, host)
	})
	snap := NewDrainSnapshot(key, hosts)

	// Only the latest refresh issued under the current key may publish.
	m.mu.Lock()
	current = m.syncEpochLocked()
	publish := m.drainEnabled && seq == m.refreshSeq && current.Key == key
	if publish {
		m.snapshot.Store(snap)
	}
	m.mu.Unlock()

	if !publish {
		log.Debugf("Discarding drain snapshot of configuration key %d (current %d)", key, current.Key)
		m.metrics.DNSRefreshed("superseded", snap.Len())
		m.dnsCache.ForceRefreshHosts()
		return
	}

	log.Infof("Refreshing DNS cache and draining %d cached hosts (configuration key %d)", snap.Len(), key)
	m.metrics.DNSRefreshed("refresh_drain", snap.Len())
	m.dnsCache.ForceRefreshHosts()
}

// DrainSnapshot returns the live drain snapshot, nil when there is none.
func (m *Manager) DrainSnapshot() *DrainSnapshot {
	return m.snapshot.Load()
}
