package handlers

import (
	"context"
	"net/http"

	"github.com/lyftr-ai/inbox/internal/api/middleware"
)

// Stats returns aggregate statistics over the message store.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	stats, err := h.store.Stats(ctx)
	if err != nil {
		middleware.GetRecord(r.Context()).Err = err
		h.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.JSON(w, http.StatusOK, stats)
}
