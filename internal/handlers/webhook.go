package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/lyftr-ai/inbox/internal/api/middleware"
	"github.com/lyftr-ai/inbox/internal/models"
	"github.com/lyftr-ai/inbox/internal/signature"
	"github.com/lyftr-ai/inbox/internal/store"
)

// Webhook ingests a signed inbound message.
//
// The pipeline is strictly ordered: signature verification over the raw body
// first, then schema validation, then the idempotent insert. Invalid
// signatures never reach the validator, so unauthenticated callers learn
// nothing about payload validation. Duplicates are not errors; the response
// body is identical for created and duplicate.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	rec := middleware.GetRecord(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		rec.Result = "error"
		rec.Err = err
		h.metrics.WebhookRequestsTotal.WithLabelValues("error").Inc()
		h.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !signature.Verify(h.secret, body, r.Header.Get("X-Signature")) {
		rec.Result = "invalid_signature"
		h.metrics.WebhookRequestsTotal.WithLabelValues("invalid_signature").Inc()
		h.Error(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		rec.Result = "validation_error"
		h.metrics.WebhookRequestsTotal.WithLabelValues("validation_error").Inc()
		h.ValidationError(w, []models.FieldError{{Field: "body", Reason: "must be a JSON object"}})
		return
	}
	rec.MessageID = payload.MessageID

	if errs := payload.Validate(); len(errs) > 0 {
		rec.Result = "validation_error"
		h.metrics.WebhookRequestsTotal.WithLabelValues("validation_error").Inc()
		h.ValidationError(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	outcome, err := h.store.InsertIfAbsent(ctx, payload.Message())
	if err != nil {
		rec.Result = "error"
		rec.Err = err
		h.metrics.WebhookRequestsTotal.WithLabelValues("error").Inc()
		h.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	rec.Result = outcome.String()
	rec.Dup = outcome == store.OutcomeDuplicate
	h.metrics.WebhookRequestsTotal.WithLabelValues(outcome.String()).Inc()

	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
