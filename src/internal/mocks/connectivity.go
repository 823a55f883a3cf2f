// Package mocks provides mock implementations for testing.
//
// This package should ONLY be imported in test files (_test.go).
// The Go toolchain will automatically exclude this package from production builds
// since it's not imported in any production code.
package mocks

import (
	"net"
	"net/netip"
	"sync"

	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
)

// MockHostInfo is a static connectivity.HostInfo.
type MockHostInfo struct {
	Addrs []netip.Addr
}

// Addresses returns the configured addresses.
func (h *MockHostInfo) Addresses() []netip.Addr {
	return h.Addrs
}

// MockSubscription records cancellation.
type MockSubscription struct {
	mu        sync.Mutex
	cancelled int
}

// Cancel records a cancellation.
func (s *MockSubscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
}

// CancelCalls returns how many times Cancel was called.
func (s *MockSubscription) CancelCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// MockDNSCache is a mock implementation of connectivity.DNSCache.
//
// Hosts are returned by IterateHostMap in insertion order. Registered
// callbacks are kept so tests can deliver resolution completions with Resolve.
//
// Example usage:
//
//	cache := mocks.NewMockDNSCache("cached.example.com")
//	mgr := connectivity.NewManager(epoch, cache, cluster, connectivity.Options{})
//	cache.Resolve("cached.example.com", connectivity.ResolutionCompleted)
type MockDNSCache struct {
	// ForceRefreshHostsFunc is called by ForceRefreshHosts if not nil
	ForceRefreshHostsFunc func()

	// IterateHostMapFunc is called by IterateHostMap after the hosts are copied and before they are visited if not nil
	IterateHostMapFunc func()

	// AddUpdateCallbacksFunc is called by AddUpdateCallbacks if not nil
	AddUpdateCallbacksFunc func(cb connectivity.DNSUpdateCallbacks) connectivity.Subscription

	mu        sync.Mutex
	hosts     []string
	callbacks []connectivity.DNSUpdateCallbacks

	// Track calls for verification in tests
	ForceRefreshHostsCalls  int
	IterateHostMapCalls     int
	AddUpdateCallbacksCalls int
	Subscriptions           []*MockSubscription
}

// NewMockDNSCache creates a mock cache holding hosts.
func NewMockDNSCache(hosts ...string) *MockDNSCache {
	return &MockDNSCache{hosts: hosts}
}

// SetHosts replaces the cached hosts.
func (m *MockDNSCache) SetHosts(hosts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hosts = hosts
}

// ForceRefreshHosts records a refresh request.
func (m *MockDNSCache) ForceRefreshHosts() {
	m.mu.Lock()
	m.ForceRefreshHostsCalls++
	fn := m.ForceRefreshHostsFunc
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// IterateHostMap calls fn for every cached host.
func (m *MockDNSCache) IterateHostMap(fn func(host string, info connectivity.HostInfo)) {
	m.mu.Lock()
	m.IterateHostMapCalls++
	hook := m.IterateHostMapFunc
	hosts := append([]string(nil), m.hosts...)
	m.mu.Unlock()

	if hook != nil {
		hook()
	}

	for _, h := range hosts {
		fn(h, &MockHostInfo{})
	}
}

// AddUpdateCallbacks registers cb and returns a MockSubscription.
func (m *MockDNSCache) AddUpdateCallbacks(cb connectivity.DNSUpdateCallbacks) connectivity.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AddUpdateCallbacksCalls++
	m.callbacks = append(m.callbacks, cb)
	if m.AddUpdateCallbacksFunc != nil {
		return m.AddUpdateCallbacksFunc(cb)
	}
	sub := &MockSubscription{}
	m.Subscriptions = append(m.Subscriptions, sub)
	return sub
}

// Resolve delivers a resolution completion for host to every registered callback.
func (m *MockDNSCache) Resolve(host string, status connectivity.ResolutionStatus) {
	m.mu.Lock()
	callbacks := append([]connectivity.DNSUpdateCallbacks(nil), m.callbacks...)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb.OnDNSResolutionComplete(host, &MockHostInfo{}, status)
	}
}

// Calls returns the refresh, iterate and subscribe call counts.
func (m *MockDNSCache) Calls() (refresh, iterate, subscribe int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ForceRefreshHostsCalls, m.IterateHostMapCalls, m.AddUpdateCallbacksCalls
}

// MockClusterManager is a mock implementation of connectivity.ClusterManager.
//
// Drained hosts are computed by applying each predicate to KnownHosts.
type MockClusterManager struct {
	// KnownHosts are the hosts with pooled connections.
	KnownHosts []string

	mu           sync.Mutex
	drainCalls   int
	drainedHosts []string
}

// DrainConnections records the drain and the known hosts it selects.
func (m *MockClusterManager) DrainConnections(predicate connectivity.HostPredicate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.drainCalls++
	for _, h := range m.KnownHosts {
		if predicate(h) {
			m.drainedHosts = append(m.drainedHosts, h)
		}
	}
}

// DrainCalls returns how many times DrainConnections was called.
func (m *MockClusterManager) DrainCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drainCalls
}

// DrainedHosts returns the known hosts selected by drains so far.
func (m *MockClusterManager) DrainedHosts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.drainedHosts...)
}

// MockInterfaceProvider is a mock implementation of connectivity.InterfaceProvider.
type MockInterfaceProvider struct {
	// InterfacesFunc is called by Interfaces if not nil
	InterfacesFunc func() ([]connectivity.SystemInterface, error)

	// Links is returned when InterfacesFunc is nil
	Links []connectivity.SystemInterface

	mu    sync.Mutex
	calls int
}

// Interfaces returns Links or the result of InterfacesFunc.
func (m *MockInterfaceProvider) Interfaces() ([]connectivity.SystemInterface, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.InterfacesFunc != nil {
		return m.InterfacesFunc()
	}
	return m.Links, nil
}

// Calls returns how many times Interfaces was called.
func (m *MockInterfaceProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// NewTypicalInterfaceProvider returns loopback, a wired uplink (index 2) and
// a cellular uplink (index 3), all up.
func NewTypicalInterfaceProvider() *MockInterfaceProvider {
	up := net.FlagUp | net.FlagRunning | net.FlagBroadcast | net.FlagMulticast
	return &MockInterfaceProvider{
		Links: []connectivity.SystemInterface{
			{
				Name:  "lo",
				Index: 1,
				Flags: net.FlagUp | net.FlagRunning | net.FlagLoopback,
				Addrs: []netip.Addr{netip.MustParseAddr("127.0.0.1"), netip.MustParseAddr("::1")},
			},
			{
				Name:  "eth0",
				Index: 2,
				Flags: up,
				Addrs: []netip.Addr{netip.MustParseAddr("192.168.1.10"), netip.MustParseAddr("fe80::1")},
			},
			{
				Name:  "wwan0",
				Index: 3,
				Flags: up | net.FlagPointToPoint,
				Addrs: []netip.Addr{netip.MustParseAddr("10.64.0.2")},
			},
		},
	}
}
