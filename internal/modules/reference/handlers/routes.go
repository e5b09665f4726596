package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers reference data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reference", func(r chi.Router) {
		r.Get("/assets", h.HandleGetAssets)
		r.Get("/scenarios", h.HandleGetScenarios)
		r.Post("/reload", h.HandleReload)
	})
}
