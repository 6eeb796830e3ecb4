package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/movewise/internal/api"
	"github.com/cloo-solutions/movewise/internal/api/handlers"
	"github.com/cloo-solutions/movewise/internal/api/middleware"
)

type RouterConfig struct {
	// APIKey guards every route except /health. Empty disables auth.
	APIKey            string
	JobHandler        *handlers.JobHandler
	SearchHandler     *handlers.SearchHandler
	SimulationHandler *handlers.SimulationHandler
	ReportHandler     *handlers.ReportHandler
	ToolHandler       *handlers.ToolHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIKey))

		if cfg.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Post("/", cfg.JobHandler.Create)
				r.Get("/", cfg.JobHandler.List)
				r.Get("/{id}", cfg.JobHandler.Get)
				r.Post("/{id}/run", cfg.JobHandler.Run)
				r.Get("/{id}/events", cfg.JobHandler.Events)
			})
		}

		if cfg.SearchHandler != nil {
			r.Post("/search", cfg.SearchHandler.Search)
			r.Post("/search/relocation", cfg.SearchHandler.Relocation)
		}

		if cfg.SimulationHandler != nil {
			r.Post("/simulations/narrative", cfg.SimulationHandler.Narrative)
			r.Post("/simulations/timeline", cfg.SimulationHandler.Timeline)
		}

		if cfg.ReportHandler != nil {
			r.Post("/reports", cfg.ReportHandler.Create)
		}

		if cfg.ToolHandler != nil {
			r.Get("/tools", cfg.ToolHandler.List)
			r.Post("/tools/{name}", cfg.ToolHandler.Call)
		}
	})

	return r
}
