package observer

import (
	"context"
	stderrors "errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
	"github.com/maksimkurb/keen-connectivity/src/internal/mocks"
)

type routeResult struct {
	route DefaultRoute
	ok    bool
	err   error
}

// scriptedSource returns results in order and repeats the last one.
type scriptedSource struct {
	mu      sync.Mutex
	results []routeResult
	calls   int
}

func (s *scriptedSource) DefaultRoute() (DefaultRoute, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	r := s.results[i]
	return r.route, r.ok, r.err
}

type refresh struct {
	key   uint64
	drain bool
}

type fakeReporter struct {
	mu        sync.Mutex
	key       uint64
	networks  []int64
	refreshes []refresh
}

func (f *fakeReporter) SetPreferredNetwork(networkID int64) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key++
	f.networks = append(f.networks, networkID)
	return f.key
}

func (f *fakeReporter) RefreshDNS(key uint64, drain bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, refresh{key: key, drain: drain})
}

func (f *fakeReporter) snapshot() ([]int64, []refresh) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.networks...), append([]refresh(nil), f.refreshes...)
}

func via(index int, name string) routeResult {
	return routeResult{route: DefaultRoute{LinkIndex: index, LinkName: name}, ok: true}
}

func TestObserver_Poll(t *testing.T) {
	source := &scriptedSource{results: []routeResult{
		via(2, "eth0"),
		via(2, "eth0"),
		via(3, "wwan0"),
		{ok: false},
		{err: stderrors.New("netlink unavailable")},
	}}
	reporter := &fakeReporter{}
	o := New(source, reporter, time.Second)

	expected := []bool{true, false, true, true}
	for i, want := range expected {
		changed, err := o.Poll()
		if err != nil {
			t.Fatalf("Poll %d: unexpected error: %v", i, err)
		}
		if changed != want {
			t.Errorf("Poll %d: expected changed=%v, got %v", i, want, changed)
		}
	}

	if _, err := o.Poll(); err == nil {
		t.Error("Expected source error to be returned")
	}

	networks, refreshes := reporter.snapshot()
	if len(networks) != 3 || networks[0] != 2 || networks[1] != 3 || networks[2] != 0 {
		t.Errorf("Unexpected reported networks %v", networks)
	}
	if len(refreshes) != 3 {
		t.Fatalf("Expected 3 refreshes, got %v", refreshes)
	}
	for i, r := range refreshes {
		if r.key != uint64(i+1) || !r.drain {
			t.Errorf("Refresh %d: expected draining refresh under key %d, got %+v", i, i+1, r)
		}
	}
}

func TestObserver_Run(t *testing.T) {
	source := &scriptedSource{results: []routeResult{via(2, "eth0"), via(3, "wwan0")}}
	reporter := &fakeReporter{}
	o := New(source, reporter, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- o.Run(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for {
		networks, _ := reporter.snapshot()
		if len(networks) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("Timed out waiting for the network change, got %v", networks)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Expected clean exit, got %v", err)
	}
}

func TestObserver_WithManager(t *testing.T) {
	cache := mocks.NewMockDNSCache("a.example.com")
	cluster := &mocks.MockClusterManager{KnownHosts: []string{"a.example.com"}}
	mgr := connectivity.NewManager(connectivity.NewNetworkEpoch(), cache, cluster, connectivity.Options{
		DrainPostDNSRefresh: true,
		InterfaceProvider:   mocks.NewTypicalInterfaceProvider(),
	})
	defer mgr.Close()

	source := &scriptedSource{results: []routeResult{via(2, "eth0")}}
	o := New(source, mgr, time.Second)

	if _, err := o.Poll(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if mgr.Status().PreferredNetwork != 2 {
		t.Errorf("Expected preferred network 2, got %d", mgr.Status().PreferredNetwork)
	}
	if refresh, _, _ := cache.Calls(); refresh != 1 {
		t.Errorf("Expected one DNS refresh, got %d", refresh)
	}

	cache.Resolve("a.example.com", connectivity.ResolutionCompleted)
	if cluster.DrainCalls() != 1 {
		t.Errorf("Expected the cached host to be drained, got %d drains", cluster.DrainCalls())
	}
}

func TestIsDefault(t *testing.T) {
	_, any4, _ := net.ParseCIDR("0.0.0.0/0")
	_, lan, _ := net.ParseCIDR("192.168.1.0/24")

	if !isDefault(nil) || !isDefault(any4) {
		t.Error("Expected nil and /0 destinations to be default routes")
	}
	if isDefault(lan) {
		t.Error("Expected a /24 not to be a default route")
	}
}

func TestNetlinkRouteSource(t *testing.T) {
	route, ok, err := NetlinkRouteSource{}.DefaultRoute()
	if err != nil {
		t.Skipf("netlink unavailable: %v", err)
	}
	if ok && route.LinkIndex == 0 {
		t.Errorf("Expected a link index for the default route, got %+v", route)
	}
}
