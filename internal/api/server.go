package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/albapepper/bosswatch/internal/api/handler"
	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/cache"
	"github.com/albapepper/bosswatch/internal/config"
	"github.com/albapepper/bosswatch/internal/notifications"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
// feed serves the alert websocket; nil leaves the route unmounted.
func NewRouter(svc *boss.Service, sched *notifications.Scheduler, feed http.Handler, appCache *cache.Cache, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(svc, sched, appCache, cfg)

	// --- Routes ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5)) // gzip

		r.Get("/", h.Root)

		// Health checks
		r.Route("/health", func(r chi.Router) {
			r.Get("/", h.HealthCheck)
			r.Get("/db", h.HealthCheckDB)
			r.Get("/cache", h.HealthCheckCache)
		})

		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Alert feed (websocket, no compression wrapper)
		if feed != nil {
			r.Get("/alerts/ws", feed.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			// Reads
			r.Get("/bosses", h.ListBosses)
			r.Get("/bosses/{bossID}", h.GetBoss)
			r.Get("/bosses/{bossID}/kills", h.GetKills)
			r.Get("/state", h.GetState)

			// Admin mutations
			r.Group(func(r chi.Router) {
				r.Use(AdminAuth(cfg.AdminAPIToken))
				r.Post("/bosses/{bossID}/kill", h.KillBoss)
				r.Post("/restart", h.Restart)
				r.Put("/notifications", h.SetNotifications)
			})
		})
	})

	return r
}
