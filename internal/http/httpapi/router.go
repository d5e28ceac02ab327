package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mediaboost/internal/http/handlers"
	"mediaboost/internal/infra"
	"mediaboost/internal/metrics"
	"mediaboost/internal/middleware"
)

// NewRouter wires the middleware chain and the full route table.
func NewRouter(app *handlers.App, cfg infra.Config) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(app.Logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/healthz", app.Health)
	r.Get("/models", app.Models)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/enhance", func(r chi.Router) {
		if cfg.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
		}
		r.Post("/image", app.EnhanceImage)
		r.Post("/video", app.EnhanceVideo)
	})

	r.Get("/status/{id}", app.Status)
	r.Get("/video/download/{id}", app.DownloadVideo)

	if cfg.PublicDir != "" {
		r.Handle("/*", stdhttp.FileServer(stdhttp.Dir(cfg.PublicDir)))
	}

	return r
}
