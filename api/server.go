/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for API consumers

ROUTE GROUPS:
  /api/health            Liveness
  /api/periods           Period inventory
  /api/companies/*       Company master data
  /api/pipeline/*        Stage triggers and the run audit log
  /api/reports/*         Output table reads
  /api/verification/*    December-close diagnostics
  /api/tables/*          Table inspection

SECURITY NOTE:
  No authentication middleware. The API is meant for an internal
  network segment.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/filings/main.go: Server startup
*/
package api

import (
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
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/periods", h.ListPeriods)

		// Company master data
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.ListCompanies)
			r.Post("/", h.CreateCompany)
			r.Get("/{code}", h.GetCompany)
			r.Put("/{code}", h.UpdateCompany)
			r.Delete("/{code}", h.DeleteCompany)
		})

		// Pipeline stages and the audit log
		r.Route("/pipeline", func(r chi.Router) {
			r.Post("/window", h.TriggerWindow)
			r.Post("/concepts", h.TriggerConcepts)
			r.Post("/sublines", h.TriggerSubLines)
			r.Post("/corrected", h.TriggerCorrected)
			r.Post("/run", h.TriggerRun)
			r.Get("/runs", h.ListRuns)
		})

		// Output table reads for downstream consumers
		r.Route("/reports", func(r chi.Router) {
			r.Get("/subline-premiums", h.ReportSubLinePremiums)
			r.Get("/company-premiums", h.ReportCompanyPremiums)
			r.Get("/company-concepts", h.ReportCompanyConcepts)
		})

		// Verification diagnostics
		r.Get("/verification/{period}", h.GetVerification)

		// Table inspection
		r.Route("/tables", func(r chi.Router) {
			r.Get("/", h.ListTables)
			r.Get("/{name}", h.PreviewTable)
		})
	})

	return r
}
