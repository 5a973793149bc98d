package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	aliasHnd "alias-service/internal/alias/handler"
	"alias-service/internal/config"
	"alias-service/internal/middleware"
	"alias-service/server/http/handlers"
)

// NewRouter wires the preview API. db may be nil when serving without Postgres.
func NewRouter(cfg config.Config, logger zerolog.Logger, db handlers.Pinger) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	r.Get("/health", handlers.Health(db))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/alias", func(r chi.Router) {
		r.Post("/preview", aliasHnd.Preview(cfg, logger))
	})

	return r
}
