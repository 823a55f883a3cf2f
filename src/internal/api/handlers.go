package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maksimkurb/keen-connectivity/src/internal/config"
	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
	"github.com/maksimkurb/keen-connectivity/src/internal/pool"
)

// Manager is the part of *connectivity.Manager the API drives.
type Manager interface {
	Status() connectivity.Status
	SetPreferredNetwork(networkID int64) uint64
	ConfigurationKey() uint64
	ReportNetworkUsage(key uint64, fault bool)
	RefreshDNS(key uint64, drain bool)
	SetInterfaceBindingEnabled(enabled bool)
	InterfaceBindingEnabled() bool
	SetDrainPostDNSRefreshEnabled(enabled bool)
	DrainPostDNSRefreshEnabled() bool
	ProxySettings() *connectivity.ProxySettings
	SetProxySettings(settings *connectivity.ProxySettings)
	BuildUpstreamSocketOptions() []connectivity.SocketOption
	UpstreamSocketOptionsHash() string
	EnumerateInterfaces(family int, required, excluded net.Flags) []connectivity.InterfaceAddress
}

// PoolStats reports pooled connection counts.
type PoolStats interface {
	Stats() pool.Stats
}

// Handler manages all API endpoints and dependencies.
type Handler struct {
	mgr        Manager
	pool       PoolStats
	configPath string
	validate   *validator.Validate
}

// NewHandler creates a handler for mgr. pool may be nil. configPath is used by
// the health check and may be empty.
func NewHandler(mgr Manager, pool PoolStats, configPath string) *Handler {
	return &Handler{
		mgr:        mgr,
		pool:       pool,
		configPath: configPath,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// loadConfig loads and validates the configuration from disk.
func (h *Handler) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(h.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(DataResponse{Data: data})
}

// writeJSONData writes a successful JSON response with data.
func writeJSONData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

// writeNoContent writes a 204 No Content response.
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decodeAndValidate decodes a JSON body into v and runs its validation tags.
// It writes the error response and returns false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteInvalidRequest(w, "Invalid JSON: "+err.Error())
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		details := make(map[string]string)
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				details[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
			}
		}
		WriteValidationError(w, "Request validation failed", details)
		return false
	}
	return true
}
