package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the request/response portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/holdings", h.HandleGetHoldings) // ?owner=
		r.Get("/summary", h.HandleGetSummary)   // ?owner=
	})
}

// RegisterStreamRoutes registers the long-lived websocket route. It must be
// mounted outside request timeouts.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/portfolio/stream", h.HandleStream) // ?owner=&interval=
}
