package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a new HTTP router with all API endpoints. metrics may be
// nil; otherwise it is served at /metrics.
func NewRouter(h *Handler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(Recovery)
	r.Use(Logger)
	r.Use(PrivateSubnetOnly)
	r.Use(JSONContentType)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/health", h.CheckHealth)

		r.Post("/network", h.SetNetwork)
		r.Post("/usage", h.ReportUsage)
		r.Post("/dns/refresh", h.RefreshDNS)

		r.Get("/settings", h.GetSettings)
		r.Patch("/settings", h.UpdateSettings)

		r.Get("/proxy", h.GetProxy)
		r.Put("/proxy", h.PutProxy)
		r.Delete("/proxy", h.DeleteProxy)

		r.Get("/interfaces", h.GetInterfaces)
	})

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	registerPprof(r)

	return r
}
