package connectivity_test

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
	"github.com/maksimkurb/keen-connectivity/src/internal/metrics"
	"github.com/maksimkurb/keen-connectivity/src/internal/mocks"
)

func newTestManager(t *testing.T, opts connectivity.Options) (*connectivity.Manager, *connectivity.NetworkEpoch) {
	t.Helper()

	if opts.InterfaceProvider == nil {
		opts.InterfaceProvider = mocks.NewTypicalInterfaceProvider()
	}
	epoch := connectivity.NewNetworkEpoch()
	mgr := connectivity.NewManager(epoch, mocks.NewMockDNSCache(), &mocks.MockClusterManager{}, opts)
	t.Cleanup(mgr.Close)
	return mgr, epoch
}

func TestManager_SingleFaultSwitchesMode(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{InterfaceBinding: true})

	key := mgr.ConfigurationKey()
	mgr.ReportNetworkUsage(key, true)

	if mgr.SocketMode() != connectivity.SocketModeAlternateBoundInterface {
		t.Fatalf("Expected alternate mode, got %s", mgr.SocketMode())
	}
	newKey := mgr.ConfigurationKey()
	if newKey <= key {
		t.Fatalf("Expected key to advance past %d, got %d", key, newKey)
	}

	// One more fault under the new key switches back.
	mgr.ReportNetworkUsage(newKey, true)

	if mgr.SocketMode() != connectivity.SocketModeDefault {
		t.Errorf("Expected default mode, got %s", mgr.SocketMode())
	}
	if mgr.ConfigurationKey() <= newKey {
		t.Errorf("Expected key to advance past %d, got %d", newKey, mgr.ConfigurationKey())
	}
}

func TestManager_SuccessRaisesThreshold(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{InterfaceBinding: true})
	key := mgr.ConfigurationKey()

	mgr.ReportNetworkUsage(key, false)

	state := mgr.FaultState()
	if state.ConsecutiveFaults != 0 || state.SwitchThreshold != 3 {
		t.Fatalf("Expected {0 3} after success, got %+v", state)
	}

	for i := 1; i <= 2; i++ {
		mgr.ReportNetworkUsage(key, true)
		if mgr.SocketMode() != connectivity.SocketModeDefault {
			t.Fatalf("Mode switched early after fault %d", i)
		}
		if mgr.ConfigurationKey() != key {
			t.Fatalf("Key changed early after fault %d", i)
		}
	}

	mgr.ReportNetworkUsage(key, true)
	if mgr.SocketMode() != connectivity.SocketModeAlternateBoundInterface {
		t.Errorf("Expected alternate mode after third fault, got %s", mgr.SocketMode())
	}
}

func TestManager_SuccessResetsFaultCount(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{
		InterfaceBinding: true,
		Hysteresis:       connectivity.Hysteresis{InitialThreshold: 2, Step: 1},
	})
	key := mgr.ConfigurationKey()

	mgr.ReportNetworkUsage(key, true)
	mgr.ReportNetworkUsage(key, false)
	mgr.ReportNetworkUsage(key, true)
	mgr.ReportNetworkUsage(key, true)

	if mgr.SocketMode() != connectivity.SocketModeDefault {
		t.Fatal("Expected interleaved success to keep default mode")
	}
	if state := mgr.FaultState(); state.ConsecutiveFaults != 2 || state.SwitchThreshold != 3 {
		t.Errorf("Expected {2 3}, got %+v", state)
	}

	mgr.ReportNetworkUsage(key, true)
	if mgr.SocketMode() != connectivity.SocketModeAlternateBoundInterface {
		t.Errorf("Expected alternate mode, got %s", mgr.SocketMode())
	}
}

func TestManager_StaleReportsIgnored(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{InterfaceBinding: true})
	stale := mgr.ConfigurationKey()

	mgr.ReportNetworkUsage(stale, true)
	current := mgr.ConfigurationKey()
	mode := mgr.SocketMode()
	state := mgr.FaultState()

	for i := 0; i < 5; i++ {
		mgr.ReportNetworkUsage(stale, i%2 == 0)
	}

	if mgr.SocketMode() != mode {
		t.Errorf("Expected mode %s, got %s", mode, mgr.SocketMode())
	}
	if mgr.FaultState() != state {
		t.Errorf("Expected fault state %+v, got %+v", state, mgr.FaultState())
	}
	if mgr.ConfigurationKey() != current {
		t.Errorf("Expected key %d, got %d", current, mgr.ConfigurationKey())
	}
}

func TestManager_BindingDisabledInvariance(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{InterfaceBinding: false})
	key := mgr.ConfigurationKey()

	for i := 0; i < 10; i++ {
		mgr.ReportNetworkUsage(key, i != 4)
	}

	if mgr.SocketMode() != connectivity.SocketModeDefault {
		t.Errorf("Expected default mode, got %s", mgr.SocketMode())
	}
	if mgr.ConfigurationKey() != key {
		t.Errorf("Expected key %d, got %d", key, mgr.ConfigurationKey())
	}
}

func TestManager_DisableBindingRevertsMode(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{InterfaceBinding: true})
	mgr.ReportNetworkUsage(mgr.ConfigurationKey(), true)
	switched := mgr.ConfigurationKey()

	mgr.SetInterfaceBindingEnabled(false)

	if mgr.SocketMode() != connectivity.SocketModeDefault {
		t.Errorf("Expected default mode, got %s", mgr.SocketMode())
	}
	if mgr.ConfigurationKey() <= switched {
		t.Errorf("Expected key to advance past %d, got %d", switched, mgr.ConfigurationKey())
	}
	if mgr.InterfaceBindingEnabled() {
		t.Error("Expected binding to be disabled")
	}

	// Disabling again in default mode changes nothing.
	key := mgr.ConfigurationKey()
	mgr.SetInterfaceBindingEnabled(false)
	if mgr.ConfigurationKey() != key {
		t.Errorf("Expected key %d, got %d", key, mgr.ConfigurationKey())
	}
}

func TestManager_NetworkChange(t *testing.T) {
	mgr, epoch := newTestManager(t, connectivity.Options{InterfaceBinding: true})
	key := mgr.ConfigurationKey()
	mgr.ReportNetworkUsage(key, false)
	mgr.ReportNetworkUsage(mgr.ConfigurationKey(), true)

	newKey := mgr.SetPreferredNetwork(2)

	if newKey <= key {
		t.Errorf("Expected key to advance past %d, got %d", key, newKey)
	}
	if epoch.PreferredNetwork() != 2 {
		t.Errorf("Expected preferred network 2, got %d", epoch.PreferredNetwork())
	}
	if state := mgr.FaultState(); state.ConsecutiveFaults != 0 || state.SwitchThreshold != 1 {
		t.Errorf("Expected fresh fault state, got %+v", state)
	}

	// Same network again is a no-op.
	if again := mgr.SetPreferredNetwork(2); again != newKey {
		t.Errorf("Expected key %d to be kept, got %d", newKey, again)
	}
}

func TestManager_NetworkChangeResetsMode(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{InterfaceBinding: true})
	mgr.ReportNetworkUsage(mgr.ConfigurationKey(), true)
	if mgr.SocketMode() != connectivity.SocketModeAlternateBoundInterface {
		t.Fatal("Expected alternate mode")
	}

	mgr.SetPreferredNetwork(3)

	if mgr.SocketMode() != connectivity.SocketModeDefault {
		t.Errorf("Expected default mode after network change, got %s", mgr.SocketMode())
	}
}

func TestManager_SharedEpoch(t *testing.T) {
	epoch := connectivity.NewNetworkEpoch()
	opts := connectivity.Options{InterfaceBinding: true, InterfaceProvider: mocks.NewTypicalInterfaceProvider()}
	a := connectivity.NewManager(epoch, mocks.NewMockDNSCache(), &mocks.MockClusterManager{}, opts)
	b := connectivity.NewManager(epoch, mocks.NewMockDNSCache(), &mocks.MockClusterManager{}, opts)
	defer a.Close()
	defer b.Close()

	key := epoch.ConfigurationKey()
	b.ReportNetworkUsage(key, false)
	a.ReportNetworkUsage(key, true)

	if a.SocketMode() != connectivity.SocketModeAlternateBoundInterface {
		t.Fatalf("Expected manager A in alternate mode, got %s", a.SocketMode())
	}
	if b.ConfigurationKey() != a.ConfigurationKey() {
		t.Error("Expected managers to share the configuration key")
	}
	if b.SocketMode() != connectivity.SocketModeDefault {
		t.Errorf("Expected manager B to keep its own mode, got %s", b.SocketMode())
	}
	if state := b.FaultState(); state.SwitchThreshold != 1 {
		t.Errorf("Expected manager B fault state reset by the epoch advance, got %+v", state)
	}

	// A report made by B under the old key is stale now.
	b.ReportNetworkUsage(key, true)
	if b.SocketMode() != connectivity.SocketModeDefault {
		t.Error("Expected stale report to be ignored")
	}
}

func TestManager_UpstreamSocketOptions(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{InterfaceBinding: true})
	mgr.SetPreferredNetwork(2)

	options := mgr.BuildUpstreamSocketOptions()
	if len(options) != 1 {
		t.Fatalf("Expected only the tag option, got %v", options)
	}
	defaultHash := mgr.UpstreamSocketOptionsHash()
	if mgr.UpstreamSocketOptionsHash() != defaultHash {
		t.Error("Expected hash to be stable while nothing changes")
	}

	mgr.ReportNetworkUsage(mgr.ConfigurationKey(), true)

	options = mgr.BuildUpstreamSocketOptions()
	if len(options) != 2 {
		t.Fatalf("Expected tag and bind options, got %v", options)
	}
	if options[1].String() != "bind_to_device(wwan0)" {
		t.Errorf("Expected binding to wwan0, got %s", options[1])
	}
	if mgr.UpstreamSocketOptionsHash() == defaultHash {
		t.Error("Expected hash to change after a mode switch")
	}

	mgr.SetPreferredNetwork(3)
	if mgr.UpstreamSocketOptionsHash() == defaultHash {
		t.Error("Expected hash to change after a network change")
	}
}

func TestManager_AlternatePrefixes(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{
		InterfaceBinding:           true,
		AlternateInterfacePrefixes: []string{"eth"},
	})
	mgr.SetPreferredNetwork(3)
	mgr.ReportNetworkUsage(mgr.ConfigurationKey(), true)

	options := mgr.BuildUpstreamSocketOptions()
	if len(options) != 2 || options[1].String() != "bind_to_device(eth0)" {
		t.Errorf("Expected binding to eth0, got %v", options)
	}
}

func TestManager_ProxySettingsDedup(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{})

	if mgr.ProxySettings() != nil {
		t.Fatal("Expected no proxy initially")
	}

	first := connectivity.ParseHostAndPort("proxy.example.com", 3128)
	mgr.SetProxySettings(first)
	mgr.SetProxySettings(connectivity.ParseHostAndPort("proxy.example.com", 3128))

	if mgr.ProxySettings() != first {
		t.Error("Expected equal settings to keep the stored pointer")
	}

	other := connectivity.ParseHostAndPort("10.0.0.1", 3128)
	mgr.SetProxySettings(other)
	if mgr.ProxySettings() != other {
		t.Error("Expected different settings to replace the stored pointer")
	}

	mgr.SetProxySettings(nil)
	if mgr.ProxySettings() != nil {
		t.Error("Expected proxy to be cleared")
	}
}

func TestManager_Status(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{InterfaceBinding: true})
	mgr.SetPreferredNetwork(2)
	mgr.ReportNetworkUsage(mgr.ConfigurationKey(), true)

	status := mgr.Status()
	if status.PreferredNetwork != 2 {
		t.Errorf("Expected network 2, got %d", status.PreferredNetwork)
	}
	if status.ConfigurationKey != 3 {
		t.Errorf("Expected key 3, got %d", status.ConfigurationKey)
	}
	if status.SocketModeName != "alternate_bound_interface" {
		t.Errorf("Unexpected mode name %q", status.SocketModeName)
	}
	if !status.InterfaceBinding || status.DrainPostDNSRefresh {
		t.Errorf("Unexpected flags in %+v", status)
	}
}

func TestManager_Metrics(t *testing.T) {
	m := metrics.NewMetrics()
	mgr, _ := newTestManager(t, connectivity.Options{InterfaceBinding: true, Metrics: m})

	mgr.SetPreferredNetwork(2)
	mgr.ReportNetworkUsage(1, true)
	mgr.ReportNetworkUsage(mgr.ConfigurationKey(), true)

	if got := testutil.ToFloat64(m.NetworkChanges); got != 1 {
		t.Errorf("Expected 1 network change, got %v", got)
	}
	if got := testutil.ToFloat64(m.ModeSwitches); got != 1 {
		t.Errorf("Expected 1 mode switch, got %v", got)
	}
	if got := testutil.ToFloat64(m.UsageReports.WithLabelValues("stale")); got != 1 {
		t.Errorf("Expected 1 stale report, got %v", got)
	}
	if got := testutil.ToFloat64(m.ConfigurationKey); got != float64(mgr.ConfigurationKey()) {
		t.Errorf("Expected key gauge %d, got %v", mgr.ConfigurationKey(), got)
	}
}

func TestManager_ConcurrentUse(t *testing.T) {
	mgr, _ := newTestManager(t, connectivity.Options{InterfaceBinding: true, DrainPostDNSRefresh: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := mgr.ConfigurationKey()
				switch j % 5 {
				case 0:
					mgr.SetPreferredNetwork(int64(id))
				case 1:
					mgr.RefreshDNS(key, true)
				case 2:
					mgr.BuildUpstreamSocketOptions()
				default:
					mgr.ReportNetworkUsage(key, j%2 == 0)
				}
			}
		}(i)
	}

	var last uint64
	for i := 0; i < 200; i++ {
		key := mgr.ConfigurationKey()
		if key < last {
			t.Fatalf("Configuration key decreased from %d to %d", last, key)
		}
		last = key
	}
	wg.Wait()
}
