// Package api wires the REST surface: routing, middleware and handler
// construction. Authentication is handled by an external gateway; nothing
// here inspects credentials.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/alerts"
	"github.com/hugh/go-warden/internal/api/handlers"
	"github.com/hugh/go-warden/internal/api/middleware"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Inspector      *asynq.Inspector
	Logger         *slog.Logger
	AnalyzeService *alerts.AnalyzeService
	AlertStore     *alerts.Store
	AllowedOrigins []string
	RateLimitReqs  int
	RateLimitSecs  int
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	alertHandler := handlers.NewAlertHandler(cfg.AlertStore)
	analyzeHandler := handlers.NewAnalyzeHandler(cfg.AnalyzeService)
	queueHandler := handlers.NewQueueHandler(cfg.Inspector)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", alertHandler.List)
			// Register /summary before /{id} so it is not captured as an id.
			r.Get("/summary", alertHandler.Summary)
			r.Get("/{id}", alertHandler.Get)
			r.Put("/{id}", alertHandler.Update)
			r.Delete("/{id}", alertHandler.Delete)
		})

		r.Post("/analyze", analyzeHandler.Analyze)
		r.Get("/queues", queueHandler.Stats)
	})

	return &Router{r}
}
