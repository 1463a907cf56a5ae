package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all prediction and report routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/predictions", func(r chi.Router) {
		r.Post("/", h.HandleCreatePrediction)
		r.Post("/batch", h.HandleBatchPrediction)
		r.Get("/{id}", h.HandleGetPrediction)
		r.Get("/{id}/pdb", h.HandleGetPDB)
		r.Get("/{id}/trace", h.HandleGetTrace)
		r.Get("/{id}/stream", h.HandleStream)
	})
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.HandleListReports)
		r.Get("/{id}", h.HandleGetReport)
	})
}
