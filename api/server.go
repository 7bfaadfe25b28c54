/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/users/*         Balances, holidays, policies, trips
  /api/entitlements/*  Entitlement types
  /api/holidays/*      Holiday calendars and defaults
  /api/dataset         Import / export
  /api/scenarios/*     Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

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

// DefaultCORSOrigins are the local frontend dev servers.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	if len(corsOrigins) == 0 {
		corsOrigins = DefaultCORSOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Put("/{id}", h.SaveUser)
			r.Get("/{id}/balances", h.GetBalances)
			r.Get("/{id}/balances/{entitlementId}", h.GetBalance)
			r.Get("/{id}/holidays", h.GetHolidays)
			r.Put("/{id}/policies", h.SavePolicy)
			r.Post("/{id}/years/{year}/initialize", h.InitializeYear)
			r.Post("/{id}/trips", h.CreateTrip)
		})

		// Entitlement routes
		r.Route("/entitlements", func(r chi.Router) {
			r.Get("/", h.ListEntitlements)
			r.Post("/", h.CreateEntitlement)
			r.Delete("/{id}", h.DeleteEntitlement)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/configs", h.ListHolidayConfigs)
			r.Post("/configs", h.SaveHolidayConfig)
			r.Post("/defaults", h.AddDefaultHolidays)
		})

		// Dataset routes
		r.Get("/dataset", h.ExportDataset)
		r.Post("/dataset", h.ImportDataset)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
