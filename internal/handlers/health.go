package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthLive handles the liveness probe. It always reports ok while the
// process is running; no dependency checks.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady handles the readiness probe. It reports ready only when the
// store is reachable with its schema applied. The webhook secret is checked
// at startup and is fatal when absent, so it cannot be missing here.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.Error(w, http.StatusServiceUnavailable, "store not ready")
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
