// Package connectivity implements the connectivity manager.
//
// The manager tracks the preferred network through a NetworkEpoch, switches
// outbound sockets to an alternate interface when the current network keeps
// failing, and keeps a DNS cache and its pooled connections consistent across
// network changes.
//
// # Network epoch
//
// A NetworkEpoch holds the preferred network id and a configuration key. The
// key grows on every network change and every socket mode switch; callers pass
// back the key they observed, and anything reported under an older key is
// ignored. One epoch is shared per process (ProcessEpoch) but tests can build
// isolated ones with NewNetworkEpoch.
//
// # Fault hysteresis
//
// ReportNetworkUsage counts consecutive faults. When they reach the switch
// threshold the socket mode toggles and the epoch advances. Every success
// resets the count and raises the threshold by Hysteresis.Step, so a network
// that has been working recently gets a larger fault budget. A fresh epoch
// starts at Hysteresis.InitialThreshold.
//
// # DNS refresh and drain
//
// RefreshDNS asks the DNS cache to re-resolve everything. With draining
// enabled, it first snapshots the cached host names; when a new resolution for
// one of those hosts completes, the cluster manager drains that host's
// connections. Hosts that were not cached before have nothing to drain.
//
// # Example
//
//	mgr := connectivity.NewManager(connectivity.ProcessEpoch(), cache, pool, connectivity.Options{
//	    InterfaceBinding:    true,
//	    DrainPostDNSRefresh: true,
//	})
//	key := mgr.ConfigurationKey()
//	conn, err := mgr.Dialer().DialContext(ctx, "tcp", "example.com:443")
//	mgr.ReportNetworkUsage(key, err != nil)
package connectivity
