package api

import (
	"context"
	"net/http"
	"time"

	"github.com/St1cky1/tasklist/internal/api/handlers"
	"github.com/St1cky1/tasklist/internal/usecase"
	"github.com/St1cky1/tasklist/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// HealthCheck reports whether the storage backend is reachable.
type HealthCheck func(ctx context.Context) error

func NewRouter(taskService *usecase.TaskService, validator *validation.Validator, tokens TokenValidator, health HealthCheck) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(health))

	taskHandler := handlers.NewTaskHandler(taskService, validator)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(tokens))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTask)
				r.Put("/", taskHandler.UpdateTask)
				r.Delete("/", taskHandler.DeleteTask)
				r.Post("/toggle", taskHandler.ToggleComplete)
			})
		})
	})

	return r
}

func healthz(health HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				log.WithError(err).Warn("health check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
