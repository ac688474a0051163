package devserver

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/haulboard/internal/live"
)

// SetupRoutes configures the dev server routes.
func SetupRoutes(router chi.Router, h *Handlers, hub *live.Hub) {
	router.Get("/", h.HomePage)
	router.Get("/updates", h.Updates)
	router.Get("/health", h.Health)
	if hub != nil {
		router.Handle("/ws", hub)
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(h.RequireCSRF)
		r.Get("/customers", h.ListCustomers)
		r.Put("/customers/{id}/status", h.UpdateCustomerStatus)
		r.Get("/analytics/quick-report", h.QuickReport)
		r.Post("/routes/{id}/optimize", h.OptimizeRoute)
		r.Post("/billing/generate-invoice", h.GenerateInvoice)
		r.Get("/export/{type}", h.Export)
	})
}
