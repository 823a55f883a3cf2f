package connectivity

import (
	"encoding/binary"
	"fmt"
	"net"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/maksimkurb/keen-connectivity/src/internal/errors"
)

// SocketMode controls how outbound sockets are routed.
type SocketMode int

const (
	// SocketModeDefault leaves routing to the OS.
	SocketModeDefault SocketMode = iota
	// SocketModeAlternateBoundInterface binds sockets to an alternate interface.
	SocketModeAlternateBoundInterface
)

func (m SocketMode) String() string {
	switch m {
	case SocketModeDefault:
		return "default"
	case SocketModeAlternateBoundInterface:
		return "alternate_bound_interface"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

func (m SocketMode) toggled() SocketMode {
	if m == SocketModeDefault {
		return SocketModeAlternateBoundInterface
	}
	return SocketModeDefault
}

// SocketOption is an option applied to an upstream socket before connect.
// HashKey appends a stable key so pools can be partitioned by option set.
type SocketOption interface {
	Apply(fd uintptr) error
	HashKey(dst []byte) []byte
	String() string
}

// networkTagOption sets nothing on the socket. Its key carries the network
// and socket mode so that pools keyed by the option hash split per network.
type networkTagOption struct {
	networkID int64
	mode      SocketMode
}

func (o networkTagOption) Apply(uintptr) error {
	return nil
}

func (o networkTagOption) HashKey(dst []byte) []byte {
	dst = append(dst, "network_tag:"...)
	dst = binary.BigEndian.AppendUint64(dst, uint64(o.networkID))
	return append(dst, byte(o.mode))
}

func (o networkTagOption) String() string {
	return fmt.Sprintf("network_tag(network=%d, mode=%s)", o.networkID, o.mode)
}

// bindToDeviceOption binds the socket to a named interface.
type bindToDeviceOption struct {
	device string
}

func (o bindToDeviceOption) Apply(fd uintptr) error {
	if err := bindToDevice(int(fd), o.device); err != nil {
		return errors.NewSocketError(fmt.Sprintf("failed to bind to device %s", o.device), err)
	}
	return nil
}

func (o bindToDeviceOption) HashKey(dst []byte) []byte {
	dst = append(dst, "bind_to_device:"...)
	return append(dst, o.device...)
}

func (o bindToDeviceOption) String() string {
	return fmt.Sprintf("bind_to_device(%s)", o.device)
}

// buildSocketOptions returns the option set for a network and mode.
func buildSocketOptions(provider InterfaceProvider, prefixes []string, networkID int64, mode SocketMode) []SocketOption {
	options := []SocketOption{networkTagOption{networkID: networkID, mode: mode}}
	if mode != SocketModeAlternateBoundInterface {
		return options
	}
	if device, ok := alternateInterface(provider, prefixes, networkID); ok {
		options = append(options, bindToDeviceOption{device: device})
	}
	return options
}

// alternateInterface picks an up, non-loopback interface other than the
// preferred network. Configured prefixes win in order, IPv4 before IPv6.
func alternateInterface(provider InterfaceProvider, prefixes []string, networkID int64) (string, bool) {
	for _, family := range []int{unix.AF_INET, unix.AF_INET6} {
		var candidates []InterfaceAddress
		for _, addr := range EnumerateInterfaces(provider, family, net.FlagUp, net.FlagLoopback) {
			if int64(addr.Index) != networkID {
				candidates = append(candidates, addr)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Index < candidates[j].Index
		})
		for _, prefix := range prefixes {
			for _, c := range candidates {
				if strings.HasPrefix(c.Name, prefix) {
					return c.Name, true
				}
			}
		}
		return candidates[0].Name, true
	}
	return "", false
}

// ApplySocketOptions applies options to a raw connection.
func ApplySocketOptions(c syscall.RawConn, options []SocketOption) error {
	var applyErr error
	err := c.Control(func(fd uintptr) {
		for _, o := range options {
			if applyErr = o.Apply(fd); applyErr != nil {
				return
			}
		}
	})
	if err != nil {
		return errors.NewSocketError("failed to access raw socket", err)
	}
	return applyErr
}

// NewDialer returns a dialer that applies options to every socket it opens.
func NewDialer(options []SocketOption) *net.Dialer {
	return &net.Dialer{
		Control: func(network, address string, c syscall.RawConn) error {
			return ApplySocketOptions(c, options)
		},
	}
}
