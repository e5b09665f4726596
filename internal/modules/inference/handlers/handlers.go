// Package handlers provides HTTP handlers for the inference log.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/opto-ai/opto/internal/modules/inference"
	"github.com/rs/zerolog"
)

// Store is the read side of the inference log
type Store interface {
	List(ctx context.Context, q inference.Query) ([]inference.Record, error)
	Stats(ctx context.Context, since *time.Time) (*inference.Stats, error)
}

// Handler handles inference log HTTP requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new inference log handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "inference").Logger(),
	}
}

// HandleListLogs handles GET /api/inference/logs
// Query params: request_id, operation, status, since (RFC3339), limit, offset
func (h *Handler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := inference.Query{
		RequestID: params.Get("request_id"),
		Operation: params.Get("operation"),
		Status:    params.Get("status"),
	}

	var err error
	if q.Since, err = parseSince(params.Get("since")); err != nil {
		h.writeError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
		return
	}
	if q.Limit, err = parseNonNegative(params.Get("limit")); err != nil {
		h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if q.Offset, err = parseNonNegative(params.Get("offset")); err != nil {
		h.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	records, err := h.store.List(r.Context(), q)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list inference logs")
		h.writeError(w, http.StatusInternalServerError, "failed to list inference logs")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  records,
		"count": len(records),
	})
}

// HandleGetStats handles GET /api/inference/stats
// Query params: since (RFC3339)
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
		return
	}

	stats, err := h.store.Stats(r.Context(), since)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get inference stats")
		h.writeError(w, http.StatusInternalServerError, "failed to get inference stats")
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func parseSince(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseNonNegative(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
