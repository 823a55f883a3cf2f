package connectivity

import (
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/maksimkurb/keen-connectivity/src/internal/errors"
	"github.com/maksimkurb/keen-connectivity/src/internal/log"
)

// InterfaceAddress is one address of an enumerated interface.
type InterfaceAddress struct {
	Name    string
	Address netip.Addr
	Index   int
}

// NetlinkInterfaceProvider lists interfaces through netlink.
type NetlinkInterfaceProvider struct{}

// Interfaces returns every link with its addresses.
func (NetlinkInterfaceProvider) Interfaces() ([]SystemInterface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, errors.NewInterfaceError("failed to list links", err)
	}

	result := make([]SystemInterface, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		iface := SystemInterface{
			Name:  attrs.Name,
			Index: attrs.Index,
			Flags: attrs.Flags,
		}

		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			log.Debugf("Failed to list addresses of %s: %v", attrs.Name, err)
		}
		for _, addr := range addrs {
			if ip, ok := netip.AddrFromSlice(addr.IP); ok {
				iface.Addrs = append(iface.Addrs, ip.Unmap())
			}
		}
		result = append(result, iface)
	}
	return result, nil
}

// EnumerateInterfaces returns one entry per address of family (unix.AF_INET or
// unix.AF_INET6) on every interface that has all required flags and none of
// the excluded ones. Conflicting flag sets and provider errors yield an empty
// result.
func EnumerateInterfaces(provider InterfaceProvider, family int, required, excluded net.Flags) []InterfaceAddress {
	result := []InterfaceAddress{}
	if required&excluded != 0 {
		return result
	}

	ifaces, err := provider.Interfaces()
	if err != nil {
		log.Warnf("Failed to enumerate interfaces: %v", err)
		return result
	}

	for _, iface := range ifaces {
		if iface.Flags&required != required || iface.Flags&excluded != 0 {
			continue
		}
		for _, addr := range iface.Addrs {
			if !matchesFamily(addr, family) {
				continue
			}
			result = append(result, InterfaceAddress{
				Name:    iface.Name,
				Address: addr,
				Index:   iface.Index,
			})
		}
	}
	return result
}

func matchesFamily(addr netip.Addr, family int) bool {
	switch family {
	case unix.AF_INET:
		return addr.Is4()
	case unix.AF_INET6:
		return addr.Is6()
	default:
		return false
	}
}
