package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers quote routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/prices", func(r chi.Router) {
		r.Get("/{assetType}/{ticker}", h.HandleGetPrice)
	})
}
