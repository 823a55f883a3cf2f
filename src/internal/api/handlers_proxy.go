package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
)

// GetProxy returns the proxy override.
// GET /api/v1/proxy
func (h *Handler) GetProxy(w http.ResponseWriter, r *http.Request) {
	proxy := h.mgr.ProxySettings()
	if proxy == nil {
		WriteNotFound(w, "Proxy override")
		return
	}
	writeJSONData(w, newProxyResponse(proxy))
}

// PutProxy replaces the proxy override. A null body clears it.
// PUT /api/v1/proxy
func (h *Handler) PutProxy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		WriteInvalidRequest(w, "Failed to read body: "+err.Error())
		return
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		h.mgr.SetProxySettings(nil)
		writeNoContent(w)
		return
	}

	var req ProxyRequest
	r.Body = io.NopCloser(bytes.NewReader(body))
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.mgr.SetProxySettings(connectivity.ParseHostAndPort(req.Host, req.Port))
	writeJSONData(w, newProxyResponse(h.mgr.ProxySettings()))
}

// DeleteProxy clears the proxy override.
// DELETE /api/v1/proxy
func (h *Handler) DeleteProxy(w http.ResponseWriter, r *http.Request) {
	h.mgr.SetProxySettings(nil)
	writeNoContent(w)
}
