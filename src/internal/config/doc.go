// Package config handles configuration file parsing and validation for keen-connectivity.
//
// The configuration is a TOML file decoded on top of DefaultConfig, so every
// key is optional. Sections:
//
//   - [general]: API listen address, default route polling interval
//   - [connectivity]: interface binding, drain policy, hysteresis tuning
//   - [dns]: host cache upstream, prefetched hosts, cache size
//   - [proxy]: optional initial proxy override
//
// Example:
//
//	[connectivity]
//	interface_binding = true
//	hysteresis_step = 2
//	alternate_interface_prefixes = ["wwan", "usb"]
//
//	[dns]
//	upstream = "udp://1.1.1.1:53"
//	hosts = ["api.example.com"]
//
// ValidateConfig returns every problem at once as ValidationErrors.
package config
