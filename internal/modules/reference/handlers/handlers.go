// Package handlers provides HTTP handlers for the reference table.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/opto-ai/opto/internal/modules/reference"
	"github.com/rs/zerolog"
)

// Store publishes and reloads the reference table
type Store interface {
	Current() *reference.Table
	Reload(ctx context.Context) (*reference.Table, error)
}

// Handler handles reference data HTTP requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new reference data handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "reference").Logger(),
	}
}

// HandleGetAssets handles GET /api/reference/assets
func (h *Handler) HandleGetAssets(w http.ResponseWriter, r *http.Request) {
	table := h.store.Current()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": table.Version(),
		"assets":  table.Assets(),
	})
}

// HandleGetScenarios handles GET /api/reference/scenarios
func (h *Handler) HandleGetScenarios(w http.ResponseWriter, r *http.Request) {
	table := h.store.Current()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":   table.Version(),
		"scenarios": table.Scenarios(),
	})
}

// HandleReload handles POST /api/reference/reload
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	previous := h.store.Current().Version()

	table, err := h.store.Reload(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to reload reference data")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":          table.Version(),
		"previous_version": previous,
		"assets":           len(table.Keys()),
		"scenarios":        len(table.ScenarioNames()),
	})
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
