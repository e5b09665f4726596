package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers allocation engine routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/allocation", func(r chi.Router) {
		r.Post("/rebalance", h.HandleRebalance)
		r.Post("/scenario", h.HandleScenario)
		r.Post("/optimize", h.HandleOptimize)
		r.Post("/metrics", h.HandleMetrics)
	})
}
