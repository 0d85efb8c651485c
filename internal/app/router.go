package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"payledger/internal/handler"
	"payledger/internal/metrics"
	"payledger/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	LedgerHandler *handler.LedgerHandler
	RedisClient   *redis.Client
	NewRelicApp   *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())
	router.Use(metrics.Middleware)

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Payment record routes. Writes are gated on the caller identity
		// inside the service; reads are open.
		payments := v1.Group("/payments")
		{
			payments.POST("", deps.LedgerHandler.LogPayment)
			payments.GET("", deps.LedgerHandler.ListPayments)
			payments.GET("/count", deps.LedgerHandler.TotalPayments)
			payments.GET("/:payment_id", deps.LedgerHandler.GetPayment)
		}

		// Administrative routes.
		ledger := v1.Group("/ledger")
		{
			ledger.POST("/pause", deps.LedgerHandler.Pause)
			ledger.POST("/unpause", deps.LedgerHandler.Unpause)
			ledger.POST("/authority", deps.LedgerHandler.TransferAuthority)
		}
	}

	return router
}
