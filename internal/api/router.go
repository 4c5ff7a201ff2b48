package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/learnly-platform/learnly/internal/database"
	mw "github.com/learnly-platform/learnly/internal/middleware"
	inats "github.com/learnly-platform/learnly/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Agent handlers
	Chat    http.HandlerFunc
	History http.HandlerFunc
	Reset   http.HandlerFunc
	Stats   http.HandlerFunc

	// Governance handlers
	ListAuditLogs http.HandlerFunc

	// Redis health probe
	RedisHealthy func() bool
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AgentRateLimiter   func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks DB, NATS, Redis
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
			"redis":    "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		if h.RedisHealthy != nil {
			if !h.RedisHealthy() {
				health["redis"] = "unhealthy"
				health["status"] = "degraded"
			}
		} else {
			health["redis"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Agent routes — optionally rate-limited
		r.Route("/agent", func(r chi.Router) {
			if cfg.AgentRateLimiter != nil {
				r.Use(cfg.AgentRateLimiter)
			}
			r.Post("/chat", h.Chat)
			r.Get("/history", h.History)
			r.Delete("/reset", h.Reset)
			r.Get("/stats", h.Stats)
		})

		// Governance routes
		r.Route("/governance", func(r chi.Router) {
			r.Get("/audit", h.ListAuditLogs)
		})
	})

	return r
}
