package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ictlab/backtest-engine-go/internal/api"
	"github.com/ictlab/backtest-engine-go/internal/config"
	"github.com/ictlab/backtest-engine-go/internal/database"
	"github.com/ictlab/backtest-engine-go/internal/handlers"
	"github.com/ictlab/backtest-engine-go/internal/logging"
	"github.com/ictlab/backtest-engine-go/internal/middleware"
	"github.com/ictlab/backtest-engine-go/internal/services"
	"github.com/ictlab/backtest-engine-go/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown telemetry: %v\n", err)
		}
	}()

	var stdLogger *logging.StandardLogger
	if cfg.Telemetry.Enabled {
		stdLogger = logging.NewStandardOTLPLogger(logging.OTLPConfig{
			Enabled:        true,
			Endpoint:       cfg.Telemetry.Endpoint,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Environment,
			LogLevel:       cfg.LogLevel,
		})
	} else {
		stdLogger = logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	}
	logger := stdLogger.Logger()

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Redis is best-effort: without it the pipeline runs uncached.
	var redis *database.RedisClient
	if cfg.Analysis.CacheEnabled {
		redis, err = database.NewRedisConnection(cfg.Redis)
		if err != nil {
			logrus.WithError(err).Warn("Redis unavailable, response caching disabled")
			redis = nil
		} else {
			defer redis.Close()
		}
	}

	registry, err := services.LoadFunctionCatalog(cfg.Registry.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load function catalog: %w", err)
	}

	mapping := services.DefaultParameterMappingTable()
	if cfg.Registry.MappingPath != "" {
		mapping, err = services.LoadParameterMapping(cfg.Registry.MappingPath)
		if err != nil {
			return fmt.Errorf("failed to load parameter mapping: %w", err)
		}
	}
	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("invalid parameter mapping: %w", err)
	}

	resolver := services.NewResolver(registry, mapping, cfg.Analysis)
	executor := database.NewFunctionExecutor(db)
	validator := services.NewStatisticalValidator(nil)
	assembler := services.NewResponseAssembler()
	pipeline := services.NewAnalysisService(resolver, executor, validator, assembler, redis, cfg.Analysis, logger)

	handler := handlers.NewAnalysisHandler(pipeline, registry)
	monitor := services.NewSystemMonitor(0)

	var auth *middleware.AuthMiddleware
	if cfg.Auth.JWTSecret != "" {
		auth = middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
	} else {
		logger.Warn("JWT secret not configured, API authentication disabled")
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, db, redis, handler, auth, monitor)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		stdLogger.LogStartup(cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stdLogger.LogShutdown(cfg.Telemetry.ServiceName, "signal received")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
