// Package handlers provides the HTTP handler for the dashboard payload.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/opto-ai/opto/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// SnapshotProvider builds the dashboard snapshot
type SnapshotProvider interface {
	Snapshot() (*portfolio.Snapshot, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	provider SnapshotProvider
	log      zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(provider SnapshotProvider, log zerolog.Logger) *Handler {
	return &Handler{
		provider: provider,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolioData handles GET /portfolio-data
func (h *Handler) HandleGetPortfolioData(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.provider.Snapshot()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio snapshot")
		h.writeError(w, http.StatusInternalServerError, "failed to build portfolio data")
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
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
