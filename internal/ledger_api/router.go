package ledger_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crav-platform/credit-ledger/internal/ledger_api/handler"
	"github.com/crav-platform/credit-ledger/internal/ledger_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	creditHandler *handler.CreditHandler,
	usageHandler *handler.UsageHandler,
	webhookHandler *handler.WebhookHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Account credit operations
		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:id/balance", creditHandler.GetBalance)
			accounts.POST("/:id/balance/rebuild", creditHandler.RebuildBalance)
			accounts.GET("/:id/balance/verify", creditHandler.VerifyBalance)
			accounts.POST("/:id/authorize", creditHandler.Authorize)
			accounts.GET("/:id/limit", creditHandler.CheckLimit)
			accounts.POST("/:id/reservations", creditHandler.Reserve)
			accounts.GET("/:id/usage", usageHandler.Summary)
			accounts.GET("/:id/transactions", usageHandler.Transactions)
			accounts.GET("/:id/limits", usageHandler.Limits)
		}

		// Transaction detail for the dashboard
		v1.GET("/entries/:id", usageHandler.Transaction)

		// Reservation lifecycle
		reservations := v1.Group("/reservations")
		{
			reservations.POST("/:id/commit", creditHandler.CommitReservation)
			reservations.DELETE("/:id", creditHandler.ReleaseReservation)
		}
	}

	// Billing provider webhook ingestion
	r.POST("/webhooks/billing", webhookHandler.Receive)

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
