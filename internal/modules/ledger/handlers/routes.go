package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers account and trade routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.HandleCreateAccount)
		r.Get("/", h.HandleListAccounts) // ?owner=
		r.Get("/{id}", h.HandleGetAccount)
		r.Put("/{id}", h.HandleUpdateAccount)
		r.Delete("/{id}", h.HandleDeleteAccount)
	})

	r.Route("/trades", func(r chi.Router) {
		r.Post("/", h.HandleCreateTrades) // object or array
		r.Get("/", h.HandleListTrades)    // ?owner=&account=&ticker=&sort=&limit=&offset=
		r.Get("/{id}", h.HandleGetTrade)
		r.Put("/{id}", h.HandleUpdateTrade)
		r.Delete("/{id}", h.HandleDeleteTrade)
	})
}
