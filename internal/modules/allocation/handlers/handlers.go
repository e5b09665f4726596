// Package handlers exposes the allocation engine over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opto-ai/opto/internal/modules/allocation"
	"github.com/opto-ai/opto/internal/modules/reference"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// TableSource hands out the reference table in effect
type TableSource interface {
	Current() *reference.Table
}

// Handler handles allocation HTTP requests
type Handler struct {
	tables TableSource
	log    zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(tables TableSource, log zerolog.Logger) *Handler {
	return &Handler{
		tables: tables,
		log:    log.With().Str("handler", "allocation").Logger(),
	}
}

// portfolioRequest is the shared request body. Metrics are optional; when
// absent they are computed from the allocation.
type portfolioRequest struct {
	Allocations   allocation.Allocation        `json:"allocations"`
	Metrics       *allocation.PortfolioMetrics `json:"metrics,omitempty"`
	AssetClass    string                       `json:"asset_class"`
	NewPercentage *float64                     `json:"new_percentage"`
	Scenario      string                       `json:"scenario"`
}

// HandleRebalance handles POST /api/allocation/rebalance
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.NewPercentage == nil {
		h.writeError(w, http.StatusBadRequest, "new_percentage is required")
		return
	}
	h.execute(w, req, allocation.Request{
		Operation:     allocation.OperationRebalance,
		AssetClass:    req.AssetClass,
		NewPercentage: *req.NewPercentage,
	})
}

// HandleScenario handles POST /api/allocation/scenario
func (h *Handler) HandleScenario(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.Scenario == "" {
		h.writeError(w, http.StatusBadRequest, "scenario is required")
		return
	}
	h.execute(w, req, allocation.Request{
		Operation: allocation.OperationAnalyzeScenario,
		Scenario:  req.Scenario,
	})
}

// HandleOptimize handles POST /api/allocation/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.execute(w, req, allocation.Request{Operation: allocation.OperationOptimize})
}

// HandleMetrics handles POST /api/allocation/metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	table := h.tables.Current()
	if err := allocation.Validate(table, req.Allocations); err != nil {
		h.writeEngineError(w, err)
		return
	}
	metrics, err := allocation.ComputeMetrics(table, req.Allocations)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	prior := metrics
	if req.Metrics != nil {
		prior = *req.Metrics
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"metrics":           allocation.TrackMetrics(metrics, prior),
		"asset_allocation":  allocation.BuildDisplay(table, req.Allocations, req.Allocations),
		"reference_version": table.Version(),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*portfolioRequest, bool) {
	var req portfolioRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if len(req.Allocations) == 0 {
		h.writeError(w, http.StatusBadRequest, "allocations are required")
		return nil, false
	}
	return &req, true
}

func (h *Handler) execute(w http.ResponseWriter, req *portfolioRequest, op allocation.Request) {
	table := h.tables.Current()

	state := allocation.State{Allocation: req.Allocations}
	if req.Metrics != nil {
		state.Metrics = *req.Metrics
	} else {
		metrics, err := allocation.ComputeMetrics(table, req.Allocations)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		state.Metrics = metrics
	}

	outcome, err := allocation.Execute(table, state, op)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.log.Debug().
		Str("operation", string(op.Operation)).
		Str("reference_version", table.Version()).
		Msg("Allocation operation executed")

	h.writeJSON(w, http.StatusOK, outcome.Result())
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	if isClientError(err) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error().Err(err).Msg("Allocation operation failed")
	h.writeError(w, http.StatusInternalServerError, err.Error())
}

func isClientError(err error) bool {
	return errors.Is(err, reference.ErrUnknownAsset) ||
		errors.Is(err, reference.ErrUnknownScenario) ||
		errors.Is(err, allocation.ErrInvalidTarget) ||
		errors.Is(err, allocation.ErrInvalidAllocation)
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
