// Package observer watches the default route and reports the interface it
// goes through as the preferred network.
package observer

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/maksimkurb/keen-connectivity/src/internal/errors"
	"github.com/maksimkurb/keen-connectivity/src/internal/log"
)

// DefaultRoute is the route used for traffic without a more specific match.
type DefaultRoute struct {
	LinkIndex int
	LinkName  string
	Priority  int
}

// RouteSource looks up the current default route. ok is false when there is none.
type RouteSource interface {
	DefaultRoute() (route DefaultRoute, ok bool, err error)
}

// Reporter receives preferred network changes. *connectivity.Manager implements it.
type Reporter interface {
	SetPreferredNetwork(networkID int64) uint64
	RefreshDNS(key uint64, drain bool)
}

// NetlinkRouteSource reads the main routing table through netlink.
type NetlinkRouteSource struct {
	// Family is netlink.FAMILY_V4 or netlink.FAMILY_V6. Zero means IPv4.
	Family int
}

// DefaultRoute returns the default route with the lowest metric.
func (s NetlinkRouteSource) DefaultRoute() (DefaultRoute, bool, error) {
	family := s.Family
	if family == 0 {
		family = netlink.FAMILY_V4
	}

	routes, err := netlink.RouteListFiltered(family, &netlink.Route{Table: unix.RT_TABLE_MAIN}, netlink.RT_FILTER_TABLE)
	if err != nil {
		return DefaultRoute{}, false, errors.NewInterfaceError("failed to list routes", err)
	}

	var defaults []DefaultRoute
	for _, r := range routes {
		if !isDefault(r.Dst) || r.LinkIndex == 0 {
			continue
		}
		route := DefaultRoute{LinkIndex: r.LinkIndex, Priority: r.Priority}
		if link, err := netlink.LinkByIndex(r.LinkIndex); err == nil {
			route.LinkName = link.Attrs().Name
		}
		defaults = append(defaults, route)
	}
	if len(defaults) == 0 {
		return DefaultRoute{}, false, nil
	}
	sort.SliceStable(defaults, func(i, j int) bool {
		return defaults[i].Priority < defaults[j].Priority
	})
	return defaults[0], true, nil
}

func isDefault(dst *net.IPNet) bool {
	if dst == nil {
		return true
	}
	ones, _ := dst.Mask.Size()
	return ones == 0
}

// Observer polls a RouteSource and reports changes of the default route link
// as preferred network changes, followed by a draining DNS refresh.
type Observer struct {
	source   RouteSource
	reporter Reporter
	interval time.Duration

	mu    sync.Mutex
	last  int64
	known bool
}

// New creates an observer polling every interval.
func New(source RouteSource, reporter Reporter, interval time.Duration) *Observer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Observer{
		source:   source,
		reporter: reporter,
		interval: interval,
	}
}

// Poll checks the default route once and reports whether the preferred
// network changed. A missing default route is reported as network 0.
func (o *Observer) Poll() (bool, error) {
	route, ok, err := o.source.DefaultRoute()
	if err != nil {
		return false, err
	}

	var networkID int64
	if ok {
		networkID = int64(route.LinkIndex)
	}

	o.mu.Lock()
	if o.known && o.last == networkID {
		o.mu.Unlock()
		return false, nil
	}
	o.last, o.known = networkID, true
	o.mu.Unlock()

	if ok {
		log.Infof("Default route is via %s (index %d)", route.LinkName, route.LinkIndex)
	} else {
		log.Warnf("No default route")
	}

	key := o.reporter.SetPreferredNetwork(networkID)
	o.reporter.RefreshDNS(key, true)
	return true, nil
}

// Run polls until ctx is cancelled.
func (o *Observer) Run(ctx context.Context) error {
	if _, err := o.Poll(); err != nil {
		log.Errorf("Failed to check default route: %v", err)
	}

	log.Infof("Monitoring default route every %v", o.interval)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			log.Debugf("Checking default route...")
			if _, err := o.Poll(); err != nil {
				log.Errorf("Failed to check default route: %v", err)
			}
		}
	}
}
