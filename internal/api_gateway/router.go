package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/loan-slip-reconciler/internal/api_gateway/handler"
	"github.com/loan-slip-reconciler/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application.
// The correlation id is assigned first so that recovery and request logs carry it.
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	limiter *rate.Limiter,
	contractHandler *handler.ContractHandler,
	slipHandler *handler.SlipHandler,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(logger, limiter))
	{
		v1.POST("/schedules/compute", contractHandler.ComputeSchedule)

		contracts := v1.Group("/contracts")
		{
			contracts.POST("", contractHandler.Create)
			contracts.GET("/:id", contractHandler.GetByID)
			contracts.GET("/:id/schedule", contractHandler.GetSchedule)
			contracts.GET("/:id/aging", contractHandler.GetAging)
			contracts.POST("/:id/slips", slipHandler.Verify)
			contracts.POST("/:id/slips/async", slipHandler.Submit)
			contracts.GET("/:id/verifications", slipHandler.ListVerifications)
		}

		v1.GET("/verifications/:submission_id", slipHandler.GetVerification)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
