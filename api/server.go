/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/leave-types/*   Leave type catalog
  /api/policies/*      Accrual policies
  /api/employees/*     Employees, balances, history
  /api/requests/*      Request workflow
  /api/admin/*         Assignments, batch runs, adjustments

SECURITY NOTE:
  No authentication middleware. Workflow endpoints trust the X-Actor-ID
  header; an authenticating reverse proxy must set it in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
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
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", actorHeader},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Leave type catalog
		r.Route("/leave-types", func(r chi.Router) {
			r.Get("/", h.ListLeaveTypes)
			r.Post("/", h.CreateLeaveType)
			r.Get("/{id}", h.GetLeaveType)
			r.Put("/{id}", h.UpdateLeaveType)
			r.Delete("/{id}", h.DeleteLeaveType)
		})

		// Accrual policies
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
			r.Get("/{id}", h.GetPolicy)
			r.Post("/{id}/deactivate", h.DeactivatePolicy)
		})

		// Employees, balances, history
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpsertEmployee)
			r.Get("/{id}/assignments", h.GetEmployeeAssignments)
			r.Get("/{id}/balances", h.GetEmployeeBalances)
			r.Get("/{id}/history", h.GetEmployeeHistory)
		})

		// Request workflow
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Post("/", h.SubmitRequest)
			r.Get("/{id}", h.GetRequest)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/deny", h.DenyRequest)
			r.Post("/{id}/withdraw", h.WithdrawRequest)
			r.Post("/{id}/cancel", h.CancelRequest)
			r.Post("/{id}/resubmit", h.ResubmitRequest)
		})

		// Admin operations
		r.Route("/admin", func(r chi.Router) {
			r.Post("/assignments", h.CreateAssignment)
			r.Post("/accruals/run", h.RunAccruals)
			r.Post("/accruals/year-end", h.RunYearEndAccruals)
			r.Post("/carryovers", h.RunCarryovers)
			r.Post("/balances/initialize", h.InitializeBalance)
			r.Post("/adjustments", h.CreateAdjustment)
		})
	})

	return r
}
