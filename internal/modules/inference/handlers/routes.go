package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers inference log routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/inference", func(r chi.Router) {
		r.Get("/logs", h.HandleListLogs)
		r.Get("/stats", h.HandleGetStats)
	})
}
