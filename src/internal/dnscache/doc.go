// Package dnscache is a small DNS host cache used by the connectivity daemon.
//
// Hosts are resolved through a single upstream with github.com/miekg/dns and
// kept in a bounded LRU map. ForceRefreshHosts re-resolves every cached host
// in the background and reports each completion to the registered
// connectivity.DNSUpdateCallbacks, which is how the connectivity manager
// learns when to drain connections after a network change.
//
// Upstream queries are sent through a dialer supplied by the caller, normally
// connectivity.Manager.Dialer, so DNS traffic follows the current socket mode.
package dnscache
