/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: Structured request logging (httplog, ECS schema)
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the admin frontend
  5. Heartbeat:     GET /health for load balancers

ROUTE GROUPS:
  /api/components/*   Salary component catalog
  /api/employees/*    Employees, assignments, attendance
  /api/calculate      Calculation preview
  /api/periods/*      Payroll period workflow and payslips
  /api/assets/*       Fixed assets and depreciation
  /api/scenarios/*    Demo scenarios and reset

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// RouterConfig controls middleware behaviour.
type RouterConfig struct {
	Logger         *slog.Logger
	LogLevel       slog.Level
	AllowedOrigins []string
}

// NewLogger returns a JSON slog logger using the ECS field names that the
// request logger emits.
func NewLogger(w io.Writer, level slog.Level, env string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(env != "production")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
		slog.String("env", env),
	)
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = NewLogger(io.Discard, cfg.LogLevel, "test")
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/health"))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/components", func(r chi.Router) {
			r.Get("/", h.ListComponents)
			r.Post("/", h.CreateComponent)
			r.Get("/{code}", h.GetComponent)
			r.Put("/{code}", h.UpdateComponent)
			r.Delete("/{code}", h.DeleteComponent)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
			r.Get("/{id}/assignments", h.GetAssignments)
			r.Post("/{id}/assignments", h.CreateAssignment)
			r.Get("/{id}/attendance/{period}", h.GetAttendance)
			r.Put("/{id}/attendance/{period}", h.PutAttendance)
		})

		r.Delete("/assignments/{id}", h.DeleteAssignment)
		r.Post("/calculate", h.Calculate)

		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Post("/", h.OpenPeriod)
			r.Get("/{id}", h.GetPeriod)
			r.Get("/{id}/transitions", h.GetTransitions)
			r.Post("/{id}/select", h.SelectEmployees)
			r.Post("/{id}/calculate", h.CalculatePeriod)
			r.Post("/{id}/approve", h.ApprovePeriod)
			r.Post("/{id}/reject", h.RejectPeriod)
			r.Post("/{id}/process", h.ProcessPayment)
			r.Post("/{id}/finalize", h.FinalizePeriod)
			r.Get("/{id}/payslips/{employee}", h.GetPayslip)
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", h.ListAssets)
			r.Post("/", h.CreateAsset)
			r.Get("/{id}", h.GetAsset)
			r.Delete("/{id}", h.DeleteAsset)
			r.Get("/{id}/depreciation", h.GetDepreciation)
			r.Get("/{id}/schedule", h.GetSchedule)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
