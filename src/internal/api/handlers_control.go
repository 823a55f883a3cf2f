package api

import (
	"net/http"

	"github.com/maksimkurb/keen-connectivity/src/internal/log"
)

// SetNetwork reports the preferred network.
// POST /api/v1/network
func (h *Handler) SetNetwork(w http.ResponseWriter, r *http.Request) {
	var req NetworkRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	key := h.mgr.SetPreferredNetwork(*req.NetworkID)
	writeJSONData(w, KeyResponse{ConfigurationKey: key})
}

// ReportUsage feeds a request outcome into the fault engine.
// POST /api/v1/usage
func (h *Handler) ReportUsage(w http.ResponseWriter, r *http.Request) {
	var req UsageRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.mgr.ReportNetworkUsage(*req.ConfigurationKey, req.Fault)
	writeJSONData(w, KeyResponse{ConfigurationKey: h.mgr.ConfigurationKey()})
}

// RefreshDNS requests a DNS cache refresh.
// POST /api/v1/dns/refresh
func (h *Handler) RefreshDNS(w http.ResponseWriter, r *http.Request) {
	var req DNSRefreshRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.mgr.RefreshDNS(*req.ConfigurationKey, req.Drain)
	writeJSONData(w, KeyResponse{ConfigurationKey: h.mgr.ConfigurationKey()})
}

// GetSettings returns the manager policies.
// GET /api/v1/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSONData(w, h.settings())
}

// UpdateSettings updates the manager policies (supports partial updates).
// PATCH /api/v1/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if req.InterfaceBinding != nil {
		log.Infof("Interface binding set to %v via API", *req.InterfaceBinding)
		h.mgr.SetInterfaceBindingEnabled(*req.InterfaceBinding)
	}
	if req.DrainPostDNSRefresh != nil {
		log.Infof("Drain after DNS refresh set to %v via API", *req.DrainPostDNSRefresh)
		h.mgr.SetDrainPostDNSRefreshEnabled(*req.DrainPostDNSRefresh)
	}

	writeJSONData(w, h.settings())
}

func (h *Handler) settings() SettingsResponse {
	return SettingsResponse{
		InterfaceBinding:    h.mgr.InterfaceBindingEnabled(),
		DrainPostDNSRefresh: h.mgr.DrainPostDNSRefreshEnabled(),
	}
}
