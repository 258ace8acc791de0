// Package handler provides HTTP handlers for all API endpoints.
// Reads go through the boss service and are cached with ETags; mutations
// go through the same service the bot uses, so its change hook purges the
// cache and kicks the scheduler.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/albapepper/bosswatch/internal/api/respond"
	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/cache"
	"github.com/albapepper/bosswatch/internal/config"
	"github.com/albapepper/bosswatch/internal/notifications"
)

// Announcer broadcasts restart announcements.
type Announcer interface {
	AnnounceRestart(ctx context.Context, restartAt time.Time, within time.Duration) ([]notifications.Alert, error)
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	svc         *boss.Service
	announcer   Announcer
	subscribers *notifications.Subscribers
	cache       *cache.Cache
	cfg         *config.Config
}

// New creates a Handler with shared dependencies.
func New(svc *boss.Service, sched *notifications.Scheduler, c *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{
		svc:         svc,
		announcer:   sched,
		subscribers: sched.Subscribers(),
		cache:       c,
		cfg:         cfg,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the docs location.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Bosswatch API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies store connectivity.
// @Summary Database health check
// @Description Verifies the configured store answers a trivial query.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Store().Ping(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"driver":    h.cfg.StoreDriver,
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"driver":    h.cfg.StoreDriver,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys, purges).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
