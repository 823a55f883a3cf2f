package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/sys/unix"
)

var interfaceFlags = map[string]net.Flags{
	"up":           net.FlagUp,
	"broadcast":    net.FlagBroadcast,
	"loopback":     net.FlagLoopback,
	"pointtopoint": net.FlagPointToPoint,
	"multicast":    net.FlagMulticast,
	"running":      net.FlagRunning,
}

// GetInterfaces lists interface addresses filtered by family and flags.
// GET /api/v1/interfaces?family=4|6&required=up,loopback&excluded=...
func (h *Handler) GetInterfaces(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	family := unix.AF_INET
	switch query.Get("family") {
	case "", "4":
	case "6":
		family = unix.AF_INET6
	default:
		WriteInvalidRequest(w, "family must be 4 or 6")
		return
	}

	required, err := parseFlags(query.Get("required"))
	if err != nil {
		WriteInvalidRequest(w, "Invalid required flags: "+err.Error())
		return
	}
	excluded, err := parseFlags(query.Get("excluded"))
	if err != nil {
		WriteInvalidRequest(w, "Invalid excluded flags: "+err.Error())
		return
	}

	addrs := h.mgr.EnumerateInterfaces(family, required, excluded)
	response := InterfacesResponse{Interfaces: make([]InterfaceInfo, 0, len(addrs))}
	for _, a := range addrs {
		response.Interfaces = append(response.Interfaces, InterfaceInfo{
			Name:    a.Name,
			Index:   a.Index,
			Address: a.Address.String(),
		})
	}

	writeJSONData(w, response)
}

func parseFlags(s string) (net.Flags, error) {
	var flags net.Flags
	if s == "" {
		return flags, nil
	}
	for _, name := range strings.Split(s, ",") {
		flag, ok := interfaceFlags[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown flag %q", name)
		}
		flags |= flag
	}
	return flags, nil
}
