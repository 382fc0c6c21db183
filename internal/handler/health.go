package handler

import (
	"net/http"
	"time"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	started time.Time
}

// NewHealthHandler creates a health handler anchored at process start.
func NewHealthHandler(started time.Time) *HealthHandler {
	return &HealthHandler{started: started}
}

// Healthz handles GET /healthz. Always 200 regardless of server state.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"uptime": time.Since(h.started).Seconds(),
	})
}
