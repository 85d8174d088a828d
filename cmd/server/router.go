package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/chelorossi/backend-challenge/internal/api"
	apiMiddleware "github.com/chelorossi/backend-challenge/internal/api/middleware"
)

// CORS settings for the submission endpoint
var (
	corsMethods = []string{http.MethodPost, http.MethodOptions}
	corsHeaders = []string{"Content-Type", "X-Amz-Date", "Authorization", "X-Api-Key"}
)

// setupRouter builds the HTTP routes: POST /tasks behind CORS, GET /health
// for liveness and GET /ready for dependency checks.
func setupRouter(tasks *api.TaskHandler, ready *api.ReadinessHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(logger))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/tasks", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: corsMethods,
			AllowedHeaders: corsHeaders,
			MaxAge:         300,
		}))

		r.Post("/", tasks.CreateTask)
		r.Options("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	r.Get("/health", api.Health)
	r.Get("/ready", ready.Ready)

	return r
}
