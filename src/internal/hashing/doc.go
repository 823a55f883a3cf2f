// Package hashing provides MD5 checksums over content-addressed keys.
//
// Upstream socket options expose a HashKey method. Connection pools are keyed
// by the checksum of the full option set, so a change of the preferred network
// or socket mode yields a different pool.
//
//	sum := hashing.ChecksumOf(mgr.BuildUpstreamSocketOptions())
//
// ChecksumKeyProxy can be used when keys are added incrementally and the raw
// bytes are also needed.
package hashing
