package connectivity

import (
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// ProxySettings is a proxy override. A proxy given as an IP address has
// Address set; one given as a name has Hostname set.
type ProxySettings struct {
	Hostname string
	Address  netip.Addr
	Port     uint16
}

// ParseHostAndPort builds proxy settings from a host (IP literal or name) and port.
// It returns nil for an empty host or a zero port.
func ParseHostAndPort(host string, port uint16) *ProxySettings {
	if host == "" || port == 0 {
		return nil
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return &ProxySettings{Address: addr.Unmap(), Port: port}
	}
	return &ProxySettings{Hostname: strings.ToLower(host), Port: port}
}

// Host returns the host part, either the IP literal or the name.
func (p *ProxySettings) Host() string {
	if p.Address.IsValid() {
		return p.Address.String()
	}
	return p.Hostname
}

// String returns host:port.
func (p *ProxySettings) String() string {
	return net.JoinHostPort(p.Host(), strconv.Itoa(int(p.Port)))
}

// Equal compares settings by value. Two nil settings are equal.
func (p *ProxySettings) Equal(other *ProxySettings) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Hostname == other.Hostname && p.Address == other.Address && p.Port == other.Port
}
