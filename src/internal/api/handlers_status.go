package api

import (
	"net"
	"net/http"

	"golang.org/x/sys/unix"
)

// GetStatus returns the manager state.
// GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.mgr.Status()

	options := h.mgr.BuildUpstreamSocketOptions()
	names := make([]string, 0, len(options))
	for _, o := range options {
		names = append(names, o.String())
	}

	response := StatusResponse{
		Status:            status,
		SocketOptions:     names,
		SocketOptionsHash: h.mgr.UpstreamSocketOptionsHash(),
		Proxy:             newProxyResponse(status.Proxy),
	}
	if h.pool != nil {
		stats := h.pool.Stats()
		response.Connections = &stats
	}

	writeJSONData(w, response)
}

// CheckHealth reports whether the configuration is valid and an uplink exists.
// GET /api/v1/health
func (h *Handler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthCheckResponse{
		Healthy: true,
		Checks:  make(map[string]CheckResult),
	}

	if h.configPath != "" {
		if _, err := h.loadConfig(); err != nil {
			response.Healthy = false
			response.Checks["config_validation"] = CheckResult{
				Passed:  false,
				Message: "Configuration validation failed: " + err.Error(),
			}
		} else {
			response.Checks["config_validation"] = CheckResult{
				Passed:  true,
				Message: "Configuration is valid",
			}
		}
	}

	uplinks := h.mgr.EnumerateInterfaces(unix.AF_INET, net.FlagUp, net.FlagLoopback)
	uplinks = append(uplinks, h.mgr.EnumerateInterfaces(unix.AF_INET6, net.FlagUp, net.FlagLoopback)...)
	if len(uplinks) == 0 {
		response.Healthy = false
		response.Checks["uplink"] = CheckResult{
			Passed:  false,
			Message: "No non-loopback interface is up",
		}
	} else {
		response.Checks["uplink"] = CheckResult{
			Passed:  true,
			Message: "Found an up interface: " + uplinks[0].Name,
		}
	}

	statusCode := http.StatusOK
	if !response.Healthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, response)
}
