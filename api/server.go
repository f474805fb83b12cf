/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the deal-workflow frontend

ROUTE GROUPS:
  /api/tax/*       Tax calculation, jurisdiction lookup, audit history
  /api/finance/*   Payment, lease, amortization
  /api/admin/*     Rule table management
  /healthz         Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.
  Front this service with the platform gateway in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Tax routes
		r.Route("/tax", func(r chi.Router) {
			r.Post("/calculate-sales-tax", h.CalculateSalesTax)
			r.Post("/calculate-deal-taxes", h.CalculateDealTaxes)
			r.Get("/jurisdiction/{postalCode}", h.GetJurisdiction)
			r.Get("/audit/{dealId}", h.GetAuditHistory)
		})

		// Finance routes
		r.Route("/finance", func(r chi.Router) {
			r.Post("/payment", h.CalculatePayment)
			r.Post("/lease", h.CalculateLease)
			r.Post("/amortization", h.GenerateAmortization)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/rules/reload", h.ReloadRules)
			r.Get("/rules", h.ListRuleTables)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
