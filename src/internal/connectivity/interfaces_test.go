package connectivity_test

import (
	"errors"
	"net"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
	"github.com/maksimkurb/keen-connectivity/src/internal/mocks"
)

func interfaceNames(addrs []connectivity.InterfaceAddress) []string {
	names := make([]string, 0, len(addrs))
	for _, a := range addrs {
		names = append(names, a.Name)
	}
	return names
}

func TestEnumerateInterfaces(t *testing.T) {
	tests := []struct {
		name     string
		family   int
		required net.Flags
		excluded net.Flags
		want     []string
	}{
		{"Loopback only", unix.AF_INET, net.FlagLoopback, 0, []string{"lo"}},
		{"Without loopback", unix.AF_INET, 0, net.FlagLoopback, []string{"eth0", "wwan0"}},
		{"Conflicting flags", unix.AF_INET, net.FlagLoopback, net.FlagLoopback, []string{}},
		{"IPv6 up", unix.AF_INET6, net.FlagUp, 0, []string{"lo", "eth0"}},
		{"Point to point", unix.AF_INET, net.FlagPointToPoint, 0, []string{"wwan0"}},
		{"Unknown family", unix.AF_UNSPEC, 0, 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mocks.NewTypicalInterfaceProvider()

			got := connectivity.EnumerateInterfaces(provider, tt.family, tt.required, tt.excluded)

			if got == nil {
				t.Fatal("Expected a non-nil result")
			}
			names := interfaceNames(got)
			if strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Expected %v, got %v", tt.want, names)
			}
		})
	}
}

func TestEnumerateInterfaces_ConflictSkipsProvider(t *testing.T) {
	provider := mocks.NewTypicalInterfaceProvider()

	connectivity.EnumerateInterfaces(provider, unix.AF_INET, net.FlagUp|net.FlagLoopback, net.FlagLoopback)

	if provider.Calls() != 0 {
		t.Errorf("Expected provider not to be queried, got %d calls", provider.Calls())
	}
}

func TestEnumerateInterfaces_ProviderError(t *testing.T) {
	provider := &mocks.MockInterfaceProvider{
		InterfacesFunc: func() ([]connectivity.SystemInterface, error) {
			return nil, errors.New("netlink unavailable")
		},
	}

	got := connectivity.EnumerateInterfaces(provider, unix.AF_INET, 0, 0)

	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty result, got %v", got)
	}
}

func TestEnumerateInterfaces_AddressDetails(t *testing.T) {
	got := connectivity.EnumerateInterfaces(mocks.NewTypicalInterfaceProvider(), unix.AF_INET, net.FlagLoopback, 0)

	if len(got) != 1 {
		t.Fatalf("Expected one address, got %v", got)
	}
	if got[0].Index != 1 || got[0].Address.String() != "127.0.0.1" {
		t.Errorf("Unexpected address %+v", got[0])
	}
}

func TestNetlinkInterfaceProvider_Loopback(t *testing.T) {
	got := connectivity.EnumerateInterfaces(connectivity.NetlinkInterfaceProvider{}, unix.AF_INET, net.FlagLoopback, 0)
	if len(got) == 0 {
		t.Skip("No IPv4 loopback visible through netlink")
	}

	for _, a := range got {
		if !a.Address.IsLoopback() {
			t.Errorf("Expected loopback address on %s, got %s", a.Name, a.Address)
		}
	}

	for _, a := range connectivity.EnumerateInterfaces(connectivity.NetlinkInterfaceProvider{}, unix.AF_INET, 0, net.FlagLoopback) {
		if strings.HasPrefix(a.Name, "lo") && a.Address.IsLoopback() {
			t.Errorf("Unexpected loopback interface %s in non-loopback result", a.Name)
		}
	}
}

func TestManager_EnumerateInterfaces(t *testing.T) {
	provider := mocks.NewTypicalInterfaceProvider()
	mgr := connectivity.NewManager(connectivity.NewNetworkEpoch(), mocks.NewMockDNSCache(), &mocks.MockClusterManager{}, connectivity.Options{
		InterfaceProvider: provider,
	})
	defer mgr.Close()

	got := mgr.EnumerateInterfaces(unix.AF_INET, net.FlagLoopback, 0)
	if len(got) != 1 || got[0].Name != "lo" {
		t.Errorf("Expected loopback only, got %v", got)
	}
}
