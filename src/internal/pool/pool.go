// Package pool keeps upstream TCP connections per host and acts as the
// connectivity.ClusterManager that the connectivity manager drains.
//
// Connections are partitioned by the checksum of the socket options they were
// dialed with, so a network change or socket mode switch never hands out a
// connection opened under the previous routing.
package pool

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
	"github.com/maksimkurb/keen-connectivity/src/internal/errors"
	"github.com/maksimkurb/keen-connectivity/src/internal/hashing"
	"github.com/maksimkurb/keen-connectivity/src/internal/log"
	"github.com/maksimkurb/keen-connectivity/src/internal/metrics"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultMaxIdle     = 4
)

// SocketPolicy supplies socket options and receives dial outcomes.
// *connectivity.Manager implements it.
type SocketPolicy interface {
	ConfigurationKey() uint64
	BuildUpstreamSocketOptions() []connectivity.SocketOption
	ReportNetworkUsage(key uint64, fault bool)
}

// ResolveFunc resolves a host to its addresses.
type ResolveFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// Options configures a Pool.
type Options struct {
	DialTimeout time.Duration
	// MaxIdle bounds idle connections per host and option set.
	MaxIdle int
	Metrics *metrics.Metrics
}

// Stats is a point-in-time count of pooled connections.
type Stats struct {
	Idle   int `json:"idle"`
	Active int `json:"active"`
}

type poolKey struct {
	host        string
	port        uint16
	optionsHash string
}

// Pool implements connectivity.ClusterManager.
type Pool struct {
	policy  SocketPolicy
	resolve ResolveFunc
	opts    Options

	mu     sync.Mutex
	idle   map[poolKey][]*Conn
	active map[*Conn]struct{}
	closed bool
}

var _ connectivity.ClusterManager = (*Pool)(nil)

// New creates a pool that dials through policy and resolves hosts with resolve.
func New(policy SocketPolicy, resolve ResolveFunc, opts Options) *Pool {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.MaxIdle <= 0 {
		opts.MaxIdle = defaultMaxIdle
	}
	return &Pool{
		policy:  policy,
		resolve: resolve,
		opts:    opts,
		idle:    make(map[poolKey][]*Conn),
		active:  make(map[*Conn]struct{}),
	}
}

// Get returns an idle connection to host:port opened under the current socket
// options, or dials a new one. The dial outcome is reported to the policy
// under the configuration key observed before dialing.
func (p *Pool) Get(ctx context.Context, host string, port uint16) (*Conn, error) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	key := p.policy.ConfigurationKey()
	options := p.policy.BuildUpstreamSocketOptions()
	pk := poolKey{host: host, port: port, optionsHash: hashing.ChecksumOf(options)}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.NewInternalError("pool is closed", nil)
	}
	if conns := p.idle[pk]; len(conns) > 0 {
		c := conns[len(conns)-1]
		p.idle[pk] = conns[:len(conns)-1]
		if len(p.idle[pk]) == 0 {
			delete(p.idle, pk)
		}
		p.active[c] = struct{}{}
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	addrs, err := p.resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, errors.NewDNSError(fmt.Sprintf("no addresses for %s", host), nil)
	}

	dialer := connectivity.NewDialer(options)
	dialer.Timeout = p.opts.DialTimeout

	var conn net.Conn
	for _, addr := range addrs {
		conn, err = dialer.DialContext(ctx, "tcp", netip.AddrPortFrom(addr, port).String())
		if err == nil {
			break
		}
		log.Debugf("Failed to dial %s (%s): %v", host, addr, err)
	}
	if ctx.Err() == nil {
		p.policy.ReportNetworkUsage(key, err != nil)
	}
	if err != nil {
		return nil, errors.NewSocketError(fmt.Sprintf("failed to connect to %s", net.JoinHostPort(host, strconv.Itoa(int(port)))), err)
	}

	c := &Conn{Conn: conn, pool: p, key: pk}
	p.mu.Lock()
	p.active[c] = struct{}{}
	p.mu.Unlock()
	return c, nil
}

// DrainConnections closes idle connections to matching hosts and marks
// in-use ones so they are closed instead of returned to the pool.
func (p *Pool) DrainConnections(predicate connectivity.HostPredicate) {
	var toClose []*Conn

	p.mu.Lock()
	for k, conns := range p.idle {
		if predicate(k.host) {
			toClose = append(toClose, conns...)
			delete(p.idle, k)
		}
	}
	marked := 0
	for c := range p.active {
		if !c.draining && predicate(c.key.host) {
			c.draining = true
			marked++
		}
	}
	p.mu.Unlock()

	for _, c := range toClose {
		_ = c.Conn.Close()
	}
	if len(toClose) > 0 || marked > 0 {
		log.Debugf("Drained %d idle connections, %d in use will close on release", len(toClose), marked)
	}
	p.opts.Metrics.Drained(len(toClose))
}

// Stats returns the number of idle and in-use connections.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Active: len(p.active)}
	for _, conns := range p.idle {
		s.Idle += len(conns)
	}
	return s
}

// Close closes every idle connection. In-use connections are closed on release.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = make(map[poolKey][]*Conn)
	p.mu.Unlock()

	for _, conns := range idle {
		for _, c := range conns {
			_ = c.Conn.Close()
		}
	}
}

func (p *Pool) release(c *Conn) {
	p.mu.Lock()
	if _, ok := p.active[c]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.active, c)

	if c.draining || p.closed || len(p.idle[c.key]) >= p.opts.MaxIdle {
		drained := c.draining
		p.mu.Unlock()
		_ = c.Conn.Close()
		if drained {
			p.opts.Metrics.Drained(1)
		}
		return
	}
	p.idle[c.key] = append(p.idle[c.key], c)
	p.mu.Unlock()
}

func (p *Pool) forget(c *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, c)
}

// Conn is a pooled connection. Callers return it with Release or discard it
// with Close.
type Conn struct {
	net.Conn
	pool *Pool
	key  poolKey

	// guarded by pool.mu
	draining bool
}

// Host returns the host the connection was opened to.
func (c *Conn) Host() string {
	return c.key.host
}

// Release returns the connection to the pool.
func (c *Conn) Release() {
	c.pool.release(c)
}

// Close closes the connection and removes it from the pool.
func (c *Conn) Close() error {
	c.pool.forget(c)
	return c.Conn.Close()
}
