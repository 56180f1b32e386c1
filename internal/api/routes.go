package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ictlab/backtest-engine-go/internal/database"
	"github.com/ictlab/backtest-engine-go/internal/handlers"
	"github.com/ictlab/backtest-engine-go/internal/middleware"
	"github.com/ictlab/backtest-engine-go/internal/services"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// SetupRoutes registers the HTTP surface: health endpoints and the
// versioned analysis API. auth may be nil when authentication is not
// configured; redis may be nil when caching is disabled.
func SetupRoutes(
	router *gin.Engine,
	db *database.PostgresDB,
	redis *database.RedisClient,
	handler *handlers.AnalysisHandler,
	auth *middleware.AuthMiddleware,
	monitor *services.SystemMonitor,
) {
	router.GET("/health", healthCheck(db, redis))
	router.GET("/health/system", systemHealth(monitor))

	v1 := router.Group("/api/v1")
	v1.Use(otelgin.Middleware("backtest-engine"))
	if auth != nil {
		v1.Use(auth.RequireAuth())
	}
	{
		v1.POST("/analysis", handler.RunAnalysis)

		functions := v1.Group("/functions")
		{
			functions.GET("", handler.ListFunctions)
			functions.GET("/:name", handler.GetFunction)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		if db == nil || db.HealthCheck(c.Request.Context()) != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}

		// Redis is optional; absent means caching is off, not degraded.
		if redis == nil {
			response.Services.Redis = "disabled"
		} else if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}

func systemHealth(monitor *services.SystemMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if monitor == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "System monitoring is not enabled"})
			return
		}
		snapshot, err := monitor.Snapshot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sample system resources", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}
