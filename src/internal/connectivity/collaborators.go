package connectivity

import (
	"net"
	"net/netip"
)

// ResolutionStatus is the outcome of a single DNS resolution.
type ResolutionStatus int

const (
	ResolutionCompleted ResolutionStatus = iota
	ResolutionFailed
)

func (s ResolutionStatus) String() string {
	switch s {
	case ResolutionCompleted:
		return "completed"
	case ResolutionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HostInfo is what the DNS cache knows about a host.
type HostInfo interface {
	Addresses() []netip.Addr
}

// DNSUpdateCallbacks receives resolution completions from a DNS cache.
// Calls arrive on the cache's goroutines.
type DNSUpdateCallbacks interface {
	OnDNSResolutionComplete(host string, info HostInfo, status ResolutionStatus)
}

// Subscription is a handle for registered DNS update callbacks.
type Subscription interface {
	// Cancel stops delivery. It is safe to call more than once.
	Cancel()
}

// DNSCache is the DNS resolution cache the manager keeps consistent.
type DNSCache interface {
	// ForceRefreshHosts re-resolves every cached host asynchronously.
	ForceRefreshHosts()
	// IterateHostMap calls fn for every cached host.
	IterateHostMap(fn func(host string, info HostInfo))
	// AddUpdateCallbacks registers cb for resolution completions.
	AddUpdateCallbacks(cb DNSUpdateCallbacks) Subscription
}

// HostPredicate selects connections by the host they were opened to.
type HostPredicate func(host string) bool

// ClusterManager owns pooled upstream connections.
type ClusterManager interface {
	DrainConnections(predicate HostPredicate)
}

// DrainFunc adapts a function to ClusterManager.
type DrainFunc func(predicate HostPredicate)

// DrainConnections calls f.
func (f DrainFunc) DrainConnections(predicate HostPredicate) {
	f(predicate)
}

// SystemInterface is an OS network interface with its addresses.
type SystemInterface struct {
	Name  string
	Index int
	Flags net.Flags
	Addrs []netip.Addr
}

// InterfaceProvider lists OS network interfaces.
type InterfaceProvider interface {
	Interfaces() ([]SystemInterface, error)
}
