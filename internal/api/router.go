package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/lyftr-ai/inbox/internal/api/middleware"
	"github.com/lyftr-ai/inbox/internal/handlers"
	"github.com/lyftr-ai/inbox/internal/metrics"
	"github.com/lyftr-ai/inbox/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, m *metrics.Metrics, st store.MessageStore, secret string) *chi.Mux {
	r := chi.NewRouter()

	// Observability first so every request is counted and logged exactly once
	observer := middleware.NewObserver(logger, m)
	r.Use(observer.Middleware)

	r.Use(chimw.RealIP)
	r.Use(middleware.MaxBodySize(64 * 1024))

	// CORS - the read surface is unauthenticated and may be called from dashboards
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Signature"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(st, m, secret)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", m.Handler())

	r.Post("/webhook", h.Webhook)
	r.Get("/messages", h.ListMessages)
	r.Get("/stats", h.Stats)
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)

	return r
}
