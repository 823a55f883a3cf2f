package api

import (
	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
	"github.com/maksimkurb/keen-connectivity/src/internal/pool"
)

// DataResponse wraps successful responses with a "data" field.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// StatusResponse is the manager state with the derived socket options.
type StatusResponse struct {
	connectivity.Status
	SocketOptions     []string       `json:"socket_options"`
	SocketOptionsHash string         `json:"socket_options_hash"`
	Proxy             *ProxyResponse `json:"proxy"`
	Connections       *pool.Stats    `json:"connections,omitempty"`
}

// KeyResponse carries the configuration key current after a request.
type KeyResponse struct {
	ConfigurationKey uint64 `json:"configuration_key"`
}

// NetworkRequest reports the preferred network.
type NetworkRequest struct {
	NetworkID *int64 `json:"network_id" validate:"required"`
}

// UsageRequest reports the outcome of a request made under a configuration key.
type UsageRequest struct {
	ConfigurationKey *uint64 `json:"configuration_key" validate:"required"`
	Fault            bool    `json:"fault"`
}

// DNSRefreshRequest asks for a DNS refresh under a configuration key.
type DNSRefreshRequest struct {
	ConfigurationKey *uint64 `json:"configuration_key" validate:"required"`
	Drain            bool    `json:"drain"`
}

// SettingsRequest is a partial update of the manager policies.
type SettingsRequest struct {
	InterfaceBinding    *bool `json:"interface_binding,omitempty"`
	DrainPostDNSRefresh *bool `json:"drain_post_dns_refresh,omitempty"`
}

// SettingsResponse returns the manager policies.
type SettingsResponse struct {
	InterfaceBinding    bool `json:"interface_binding"`
	DrainPostDNSRefresh bool `json:"drain_post_dns_refresh"`
}

// ProxyRequest sets the proxy override.
type ProxyRequest struct {
	Host string `json:"host" validate:"required,hostname_rfc1123|ip"`
	Port uint16 `json:"port" validate:"required,min=1"`
}

// ProxyResponse is the current proxy override.
type ProxyResponse struct {
	Host    string `json:"host"`
	Port    uint16 `json:"port"`
	Address string `json:"address"`
}

// InterfaceInfo is one enumerated interface address.
type InterfaceInfo struct {
	Name    string `json:"name"`
	Index   int    `json:"index"`
	Address string `json:"address"`
}

// InterfacesResponse represents the response for the interfaces list endpoint.
type InterfacesResponse struct {
	Interfaces []InterfaceInfo `json:"interfaces"`
}

// HealthCheckResponse contains health check results.
type HealthCheckResponse struct {
	Healthy bool                   `json:"healthy"`
	Checks  map[string]CheckResult `json:"checks"`
}

// CheckResult represents a single health check result.
type CheckResult struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

func newProxyResponse(p *connectivity.ProxySettings) *ProxyResponse {
	if p == nil {
		return nil
	}
	return &ProxyResponse{Host: p.Host(), Port: p.Port, Address: p.String()}
}
