package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/lyftr-ai/inbox/internal/api/middleware"
	"github.com/lyftr-ai/inbox/internal/models"
	"github.com/lyftr-ai/inbox/internal/store"
)

// MessageListResponse represents the messages list response.
type MessageListResponse struct {
	Data   []models.Message `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ListMessages handles listing stored messages with pagination and
// filtering. Malformed or out-of-range query parameters are rejected before
// the store is reached, never silently clamped.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var errs []models.FieldError

	limit := 50
	if s := q.Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l < 1 || l > 100 {
			errs = append(errs, models.FieldError{Field: "limit", Reason: "must be an integer between 1 and 100"})
		} else {
			limit = l
		}
	}

	offset := 0
	if s := q.Get("offset"); s != "" {
		o, err := strconv.Atoi(s)
		if err != nil || o < 0 {
			errs = append(errs, models.FieldError{Field: "offset", Reason: "must be a non-negative integer"})
		} else {
			offset = o
		}
	}

	since := q.Get("since")
	if since != "" {
		if _, err := time.Parse(time.RFC3339, since); err != nil {
			errs = append(errs, models.FieldError{Field: "since", Reason: "must be an ISO-8601 timestamp with timezone"})
		}
	}

	if len(errs) > 0 {
		h.ValidationError(w, errs)
		return
	}

	filter := store.ListFilter{
		From:  q.Get("from"),
		Since: since,
		Query: q.Get("q"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	messages, total, err := h.store.List(ctx, filter, limit, offset)
	if err != nil {
		middleware.GetRecord(r.Context()).Err = err
		h.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.JSON(w, http.StatusOK, MessageListResponse{
		Data:   messages,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
