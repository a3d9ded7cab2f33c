package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/alerts"
	"github.com/hugh/go-warden/internal/api"
	"github.com/hugh/go-warden/internal/database"
	"github.com/hugh/go-warden/internal/engine"
	"github.com/hugh/go-warden/internal/notify"
	"github.com/hugh/go-warden/internal/policy/catalog"
	"github.com/hugh/go-warden/pkg/config"
	"github.com/hugh/go-warden/pkg/queue"
	"github.com/hugh/go-warden/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env, "server")
	slog.SetDefault(logger)

	logger.Info("starting Go-Warden server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, notifications disabled", "error", err)
		redisClient = nil
	}

	// Build the policy registry; a failure here is a programming error
	registry, err := catalog.Default()
	if err != nil {
		logger.Error("failed to build policy registry", "error", err)
		os.Exit(1)
	}
	logger.Info("policy registry built", "policies", registry.Len())

	evaluator := engine.NewEvaluator(registry, logger, cfg.Engine.Workers)
	store := alerts.NewStore(db, logger)

	// Notifications are dispatched through the queue; without Redis the
	// trigger degrades to a no-op.
	var notifier alerts.Notifier = alerts.NoopNotifier{}
	var inspector *asynq.Inspector
	if redisClient != nil {
		asynqClient := queue.NewClient(&cfg.Redis)
		defer asynqClient.Close()
		notifier = notify.NewTrigger(asynqClient, cfg.Notifications, logger)

		inspector = queue.NewInspector(&cfg.Redis)
		defer inspector.Close()
	}

	analyzeService := alerts.NewAnalyzeService(evaluator, store, notifier, logger)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Inspector:      inspector,
		Logger:         logger,
		AnalyzeService: analyzeService,
		AlertStore:     store,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
