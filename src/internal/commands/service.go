package commands

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/maksimkurb/keen-connectivity/src/internal/api"
	"github.com/maksimkurb/keen-connectivity/src/internal/config"
	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
	"github.com/maksimkurb/keen-connectivity/src/internal/dnscache"
	"github.com/maksimkurb/keen-connectivity/src/internal/log"
	"github.com/maksimkurb/keen-connectivity/src/internal/metrics"
	"github.com/maksimkurb/keen-connectivity/src/internal/observer"
	"github.com/maksimkurb/keen-connectivity/src/internal/pool"
)

const preloadConcurrency = 4

func CreateServiceCommand() *ServiceCommand {
	gc := &ServiceCommand{
		fs: flag.NewFlagSet("service", flag.ExitOnError),
	}
	gc.fs.IntVar(&gc.MonitorInterval, "monitor-interval", -1, "Default route polling interval in seconds (overrides config, 0 = disabled)")
	gc.fs.StringVar(&gc.APIListen, "api", "", "HTTP API listen address (overrides config)")
	return gc
}

type ServiceCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config

	MonitorInterval int
	APIListen       string

	components *components
}

// components is the wired set of long-lived service parts.
type components struct {
	registry *prometheus.Registry
	manager  *connectivity.Manager
	cache    *dnscache.Cache
	pool     *pool.Pool
	observer *observer.Observer
	handler  http.Handler
}

func (s *ServiceCommand) Name() string {
	return s.fs.Name()
}

func (s *ServiceCommand) Init(args []string, ctx *AppContext) error {
	s.ctx = ctx

	if err := s.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	if s.MonitorInterval >= 0 {
		cfg.General.MonitorIntervalSeconds = s.MonitorInterval
	}
	if s.APIListen != "" {
		cfg.General.APIListen = s.APIListen
	}
	s.cfg = cfg

	c, err := buildComponents(cfg, connectivity.ProcessEpoch(), nil)
	if err != nil {
		return err
	}
	s.components = c
	return nil
}

// buildComponents wires the manager to its DNS cache, connection pool, route
// observer and API from cfg. interfaces may be nil to use netlink.
func buildComponents(cfg *config.Config, epoch *connectivity.NetworkEpoch, interfaces connectivity.InterfaceProvider) (*components, error) {
	network, address, err := config.ParseDNSUpstream(cfg.DNS.Upstream)
	if err != nil {
		return nil, err
	}

	c := &components{registry: prometheus.NewRegistry()}
	m := metrics.NewMetrics()
	if err := m.Register(c.registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// The cache and the pool dial through the manager, which is built after them.
	c.cache, err = dnscache.New(dnscache.Options{
		Network:  network,
		Address:  address,
		Timeout:  cfg.DNS.QueryTimeout(),
		MaxHosts: cfg.DNS.CacheMaxHosts,
		Dialer: func() *net.Dialer {
			return c.manager.Dialer()
		},
	})
	if err != nil {
		return nil, err
	}

	c.manager = connectivity.NewManager(epoch, c.cache, connectivity.DrainFunc(func(predicate connectivity.HostPredicate) {
		c.pool.DrainConnections(predicate)
	}), connectivity.Options{
		Hysteresis: connectivity.Hysteresis{
			InitialThreshold: cfg.Connectivity.InitialThreshold,
			Step:             cfg.Connectivity.HysteresisStep,
		},
		InterfaceBinding:           cfg.Connectivity.InterfaceBinding,
		DrainPostDNSRefresh:        cfg.Connectivity.DrainPostDNSRefresh,
		AlternateInterfacePrefixes: cfg.Connectivity.AlternateInterfacePrefixes,
		InterfaceProvider:          interfaces,
		Metrics:                    m,
	})
	c.pool = pool.New(c.manager, c.cache.LookupAddrs, pool.Options{Metrics: m})

	if cfg.Proxy != nil {
		c.manager.SetProxySettings(connectivity.ParseHostAndPort(cfg.Proxy.Host, cfg.Proxy.Port))
	}

	if interval := cfg.General.MonitorInterval(); interval > 0 {
		c.observer = observer.New(observer.NetlinkRouteSource{}, c.manager, interval)
	}

	metricsHandler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
	c.handler = api.NewRouter(api.NewHandler(c.manager, c.pool, cfg.GetConfigFilePath()), metricsHandler)
	return c, nil
}

// close releases the components in reverse order of construction.
func (c *components) close() {
	c.pool.Close()
	c.manager.Close()
	c.cache.Close()
}

// preloadHosts resolves the configured hosts so the first refresh has
// something to drain.
func (c *components) preloadHosts(ctx context.Context, hosts []string) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadConcurrency)
	for _, host := range hosts {
		host := host
		g.Go(func() error {
			if _, err := c.cache.Resolve(ctx, host); err != nil {
				log.Warnf("Failed to resolve %s: %v", host, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	log.Infof("Preloaded %d of %d hosts into the DNS cache", c.cache.Len(), len(hosts))
}

func (s *ServiceCommand) Run() error {
	log.Infof("Starting keen-connectivity service...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := s.components
	defer c.close()

	var runners []*RestartableRunner
	if c.observer != nil {
		runners = append(runners, NewRestartableRunner(RunnerConfig{
			Name:        "Route observer",
			MaxBackoff:  s.cfg.General.MonitorInterval() * 6,
			StopTimeout: 5 * time.Second,
		}, c.observer.Run))
	} else {
		log.Infof("Default route monitoring is disabled")
	}

	if s.cfg.General.APIListen != "" {
		server := api.NewServer(s.cfg.General.APIListen, c.handler)
		runners = append(runners, NewRestartableRunner(RunnerConfig{
			Name:        "API server",
			MaxRestarts: 5,
			StopTimeout: 10 * time.Second,
		}, server.Run))
	}

	for _, r := range runners {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}
	defer func() {
		for i := len(runners) - 1; i >= 0; i-- {
			if err := runners[i].Stop(); err != nil {
				log.Warnf("%v", err)
			}
		}
	}()

	c.preloadHosts(ctx, s.cfg.DNS.Hosts)

	status := c.manager.Status()
	log.Infof("Service started (configuration key %d, socket mode %s)", status.ConfigurationKey, status.SocketModeName)

	<-ctx.Done()
	log.Infof("Received shutdown signal, stopping service...")
	return nil
}
