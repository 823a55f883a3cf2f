package dnscache

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
	"github.com/maksimkurb/keen-connectivity/src/internal/errors"
	"github.com/maksimkurb/keen-connectivity/src/internal/log"
)

const (
	defaultMaxHosts           = 1024
	defaultTimeout            = 5 * time.Second
	defaultRefreshConcurrency = 8
)

// Options configures a Cache.
type Options struct {
	// Network is "udp" or "tcp".
	Network string
	// Address is the upstream host:port.
	Address string
	// Timeout bounds one host resolution.
	Timeout time.Duration
	// MaxHosts bounds the host map. The least recently resolved host is evicted.
	MaxHosts int
	// RefreshConcurrency bounds parallel resolutions during a forced refresh.
	RefreshConcurrency int
	// Dialer returns the dialer for one upstream exchange. Nil uses the default.
	Dialer func() *net.Dialer
}

// Entry is a resolved host.
type Entry struct {
	host  string
	addrs []netip.Addr
}

// Host returns the normalized host name.
func (e *Entry) Host() string {
	return e.host
}

// Addresses returns the resolved addresses, IPv4 first.
func (e *Entry) Addresses() []netip.Addr {
	return e.addrs
}

// CallbacksFunc adapts a function to connectivity.DNSUpdateCallbacks.
type CallbacksFunc func(host string, info connectivity.HostInfo, status connectivity.ResolutionStatus)

// OnDNSResolutionComplete calls f.
func (f CallbacksFunc) OnDNSResolutionComplete(host string, info connectivity.HostInfo, status connectivity.ResolutionStatus) {
	f(host, info, status)
}

// Cache implements connectivity.DNSCache.
type Cache struct {
	opts  Options
	hosts *lru.Cache[string, *Entry]

	mu        sync.Mutex
	callbacks map[uint64]connectivity.DNSUpdateCallbacks
	nextID    uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ connectivity.DNSCache = (*Cache)(nil)

// New creates a cache for the given upstream.
func New(opts Options) (*Cache, error) {
	if opts.Network == "" {
		opts.Network = "udp"
	}
	if opts.Network != "udp" && opts.Network != "tcp" {
		return nil, errors.NewDNSError(fmt.Sprintf("unsupported upstream network %q", opts.Network), nil)
	}
	if _, _, err := net.SplitHostPort(opts.Address); err != nil {
		return nil, errors.NewDNSError(fmt.Sprintf("invalid upstream address %q", opts.Address), err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxHosts <= 0 {
		opts.MaxHosts = defaultMaxHosts
	}
	if opts.RefreshConcurrency <= 0 {
		opts.RefreshConcurrency = defaultRefreshConcurrency
	}

	hosts, err := lru.New[string, *Entry](opts.MaxHosts)
	if err != nil {
		return nil, errors.NewInternalError("failed to create host map", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		opts:      opts,
		hosts:     hosts,
		callbacks: make(map[uint64]connectivity.DNSUpdateCallbacks),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Close stops background refreshes and waits for them to finish.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}

// Len returns the number of cached hosts.
func (c *Cache) Len() int {
	return c.hosts.Len()
}

// Lookup returns the cached entry for host without resolving it.
func (c *Cache) Lookup(host string) (*Entry, bool) {
	return c.hosts.Peek(normalizeHost(host))
}

// Resolve returns the cached entry for host, resolving and caching it first
// when it is not cached yet.
func (c *Cache) Resolve(ctx context.Context, host string) (*Entry, error) {
	host = normalizeHost(host)
	if entry, ok := c.hosts.Get(host); ok {
		return entry, nil
	}
	return c.resolveAndNotify(ctx, host)
}

// ForceRefreshHosts re-resolves every cached host in the background.
func (c *Cache) ForceRefreshHosts() {
	if c.ctx.Err() != nil {
		return
	}
	hosts := c.hosts.Keys()
	log.Debugf("Refreshing %d cached hosts", len(hosts))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		var g errgroup.Group
		g.SetLimit(c.opts.RefreshConcurrency)
		for _, host := range hosts {
			host := host
			g.Go(func() error {
				if c.ctx.Err() != nil {
					return nil
				}
				_, _ = c.resolveAndNotify(c.ctx, host)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// IterateHostMap calls fn for every cached host, oldest first.
func (c *Cache) IterateHostMap(fn func(host string, info connectivity.HostInfo)) {
	for _, host := range c.hosts.Keys() {
		if entry, ok := c.hosts.Peek(host); ok {
			fn(host, entry)
		}
	}
}

// AddUpdateCallbacks registers cb for every resolution completion.
func (c *Cache) AddUpdateCallbacks(cb connectivity.DNSUpdateCallbacks) connectivity.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.callbacks[c.nextID] = cb
	return &subscription{cache: c, id: c.nextID}
}

func (c *Cache) removeCallbacks(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.callbacks, id)
}

// resolveAndNotify resolves host and reports the outcome to every callback.
// A failed resolution keeps the previously cached addresses.
func (c *Cache) resolveAndNotify(ctx context.Context, host string) (*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	addrs, err := c.resolve(ctx, host)
	if err != nil {
		log.Warnf("Failed to resolve %s: %v", host, err)
		info, ok := c.hosts.Peek(host)
		if !ok {
			info = &Entry{host: host}
		}
		c.notify(host, info, connectivity.ResolutionFailed)
		return nil, err
	}

	entry := &Entry{host: host, addrs: addrs}
	c.hosts.Add(host, entry)
	log.Debugf("Resolved %s: %v", host, addrs)
	c.notify(host, entry, connectivity.ResolutionCompleted)
	return entry, nil
}

func (c *Cache) notify(host string, info connectivity.HostInfo, status connectivity.ResolutionStatus) {
	c.mu.Lock()
	callbacks := make([]connectivity.DNSUpdateCallbacks, 0, len(c.callbacks))
	for id := uint64(1); id <= c.nextID; id++ {
		if cb, ok := c.callbacks[id]; ok {
			callbacks = append(callbacks, cb)
		}
	}
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb.OnDNSResolutionComplete(host, info, status)
	}
}

// resolve queries A and AAAA records in parallel. One family failing is
// tolerated as long as the other yields addresses.
func (c *Cache) resolve(ctx context.Context, host string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr.Unmap()}, nil
	}

	var v4, v6 []netip.Addr
	var g errgroup.Group
	g.Go(func() error {
		var err error
		v4, err = c.query(ctx, host, dns.TypeA)
		return err
	})
	g.Go(func() error {
		var err error
		v6, err = c.query(ctx, host, dns.TypeAAAA)
		return err
	})
	err := g.Wait()

	addrs := append(v4, v6...)
	if len(addrs) > 0 {
		return addrs, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, errors.NewDNSError(fmt.Sprintf("no addresses for %s", host), nil)
}

func (c *Cache) query(ctx context.Context, host string, qtype uint16) ([]netip.Addr, error) {
	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(host), qtype)

	client := &dns.Client{
		Net:     c.opts.Network,
		Timeout: c.opts.Timeout,
	}
	if c.opts.Dialer != nil {
		client.Dialer = c.opts.Dialer()
	}

	resp, _, err := client.ExchangeContext(ctx, req, c.opts.Address)
	if err != nil {
		return nil, errors.NewDNSError(fmt.Sprintf("%s %s query failed", host, dns.TypeToString[qtype]), err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, errors.NewDNSError(fmt.Sprintf("%s %s query returned %s", host, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode]), nil)
	}

	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		var ip net.IP
		switch r := rr.(type) {
		case *dns.A:
			ip = r.A
		case *dns.AAAA:
			ip = r.AAAA
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, addr.Unmap())
		}
	}
	return addrs, nil
}

type subscription struct {
	cache *Cache
	id    uint64
	once  sync.Once
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.cache.removeCallbacks(s.id)
	})
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// LookupAddrs resolves host through the cache and returns its addresses.
func (c *Cache) LookupAddrs(ctx context.Context, host string) ([]netip.Addr, error) {
	entry, err := c.Resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	return entry.Addresses(), nil
}
