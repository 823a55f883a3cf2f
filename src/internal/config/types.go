package config

import (
	"net"
	"strconv"
	"time"
)

type Config struct {
	// General holds process-level settings.
	General *GeneralConfig `toml:"general"`
	// Connectivity holds the connectivity manager policies.
	Connectivity *ConnectivityConfig `toml:"connectivity"`
	// DNS holds the DNS host cache settings.
	DNS *DNSConfig `toml:"dns"`
	// Proxy is the initial proxy override (optional).
	Proxy *ProxyConfig `toml:"proxy,omitempty"`

	_absConfigFilePath string
}

type GeneralConfig struct {
	// APIListen is the address of the HTTP API (default: 127.0.0.1:12121). Empty disables the API.
	APIListen string `toml:"api_listen" json:"api_listen" validate:"hostport_or_empty"`
	// MonitorIntervalSeconds is the default route polling interval in seconds (default: 5, 0 = disabled).
	MonitorIntervalSeconds int `toml:"monitor_interval_seconds" json:"monitor_interval_seconds" validate:"gte=0"`
}

type ConnectivityConfig struct {
	// InterfaceBinding allows switching outbound sockets to an alternate interface after faults (default: true).
	InterfaceBinding bool `toml:"interface_binding" json:"interface_binding"`
	// DrainPostDNSRefresh drains connections of previously cached hosts after a DNS refresh (default: true).
	DrainPostDNSRefresh bool `toml:"drain_post_dns_refresh" json:"drain_post_dns_refresh"`
	// InitialThreshold is the number of consecutive faults needed to switch mode on a fresh network (default: 1).
	InitialThreshold uint32 `toml:"initial_threshold" json:"initial_threshold" validate:"required,min=1"`
	// HysteresisStep is added to the threshold after every successful request (default: 2).
	HysteresisStep uint32 `toml:"hysteresis_step" json:"hysteresis_step" validate:"min=0"`
	// AlternateInterfacePrefixes are preferred, in order, when choosing the alternate interface (e.g. ["wwan", "usb"]).
	AlternateInterfacePrefixes []string `toml:"alternate_interface_prefixes" json:"alternate_interface_prefixes" validate:"dive,required"`
}

type DNSConfig struct {
	// Upstream is the DNS server used by the host cache, udp://ip:port or tcp://ip:port (default: udp://1.1.1.1:53).
	Upstream string `toml:"upstream" json:"upstream" validate:"required,dns_upstream"`
	// Hosts are resolved at startup and kept in the cache.
	Hosts []string `toml:"hosts" json:"hosts" validate:"dive,hostname_rfc1123"`
	// CacheMaxHosts bounds the number of cached hosts (default: 1024).
	CacheMaxHosts int `toml:"cache_max_hosts" json:"cache_max_hosts" validate:"min=1"`
	// QueryTimeoutSeconds is the timeout for a single DNS exchange (default: 5).
	QueryTimeoutSeconds int `toml:"query_timeout_seconds" json:"query_timeout_seconds" validate:"min=1,max=60"`
}

type ProxyConfig struct {
	// Host is an IP address or hostname of the proxy.
	Host string `toml:"host" json:"host" validate:"required"`
	// Port is the proxy port.
	Port uint16 `toml:"port" json:"port" validate:"required,min=1"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		General: &GeneralConfig{
			APIListen:              "127.0.0.1:12121",
			MonitorIntervalSeconds: 5,
		},
		Connectivity: &ConnectivityConfig{
			InterfaceBinding:    true,
			DrainPostDNSRefresh: true,
			InitialThreshold:    1,
			HysteresisStep:      2,
		},
		DNS: &DNSConfig{
			Upstream:            "udp://1.1.1.1:53",
			CacheMaxHosts:       1024,
			QueryTimeoutSeconds: 5,
		},
	}
}

func (c *Config) GetConfigFilePath() string {
	return c._absConfigFilePath
}

// MonitorInterval returns the route polling interval, zero when disabled.
func (g *GeneralConfig) MonitorInterval() time.Duration {
	return time.Duration(g.MonitorIntervalSeconds) * time.Second
}

// QueryTimeout returns the DNS exchange timeout.
func (d *DNSConfig) QueryTimeout() time.Duration {
	return time.Duration(d.QueryTimeoutSeconds) * time.Second
}

// Address returns the proxy as host:port.
func (p *ProxyConfig) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port)))
}
