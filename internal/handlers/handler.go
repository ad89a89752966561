package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lyftr-ai/inbox/internal/metrics"
	"github.com/lyftr-ai/inbox/internal/models"
	"github.com/lyftr-ai/inbox/internal/store"
)

// storeTimeout bounds every store call so a stuck database surfaces as an
// internal error instead of hanging the request.
const storeTimeout = 5 * time.Second

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store   store.MessageStore
	metrics *metrics.Metrics
	secret  string
}

// NewHandler creates a new Handler with the given store, metrics and webhook
// secret.
func NewHandler(st store.MessageStore, m *metrics.Metrics, secret string) *Handler {
	return &Handler{store: st, metrics: m, secret: secret}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"detail": message})
}

// ValidationError sends a 422 response itemizing every violated field.
func (h *Handler) ValidationError(w http.ResponseWriter, errs []models.FieldError) {
	h.JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": errs})
}
