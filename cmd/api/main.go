package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacy-guard-backend/config"
	_ "pharmacy-guard-backend/docs" // Important for Swagger
	v1 "pharmacy-guard-backend/internal/delivery/http/v1"
	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/internal/repository/memory"
	"pharmacy-guard-backend/internal/repository/postgres"
	latchredis "pharmacy-guard-backend/internal/repository/redis"
	"pharmacy-guard-backend/internal/usecase"
	"pharmacy-guard-backend/pkg/auth"
	"pharmacy-guard-backend/pkg/database"
	"pharmacy-guard-backend/pkg/logger"
	"pharmacy-guard-backend/pkg/redis"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// @title           Pharmacy Route Guard API
// @version         1.0
// @description     Role-based navigation guard for the pharmacy delivery app.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)
	logger.Log.Info("Starting route guard backend", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Setup Database
	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Setup latch storage: Redis when reachable, memory otherwise
	memLatches := memory.NewLatchRepository()
	memLatches.StartJanitor(ctx, 5*time.Minute)

	var redisClient *goredis.Client
	var latches domain.LatchRepository = memLatches
	redisClient, err = redis.Connect(ctx, redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
	switch {
	case errors.Is(err, redis.ErrNotConfigured):
		redisClient = nil
	case err != nil:
		logger.Log.Warn("Redis unavailable, guard latches kept in memory", "error", err)
		redisClient = nil
	default:
		defer redisClient.Close()
		latches = latchredis.NewLatchRepository(redisClient, memLatches)
	}

	// 5. Setup Repositories and UseCases
	userRepo := postgres.NewUserRepository(dbPool)
	authUC := usecase.NewAuthUsecase(userRepo)
	navUC := usecase.NewNavigationUsecase(latches, usecase.NavigationConfig{
		LatchTTL:       cfg.LatchTTL,
		SuppressWindow: cfg.SuppressWindow,
	})

	healthChecks := map[string]usecase.HealthCheck{"postgres": dbPool.Ping}
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error {
			return redis.HealthCheck(ctx, redisClient)
		}
	}
	healthUC := usecase.NewHealthUsecase(healthChecks)

	// 6. Setup token verification
	var jwks *auth.Provider
	if cfg.JWKSURL != "" {
		jwks = auth.NewProvider(cfg.JWKSURL, nil)
	}
	verifier := auth.NewVerifier(cfg.JWTSecret, jwks)

	// 7. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:       authUC,
		NavigationUC: navUC,
		HealthUC:     healthUC,
		Verifier:     verifier,
		Redis:        redisClient,
		Config:       cfg,
	})

	// 8. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Listen failed", "error", err)
			stop()
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
