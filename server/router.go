package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether the service's dependencies are reachable
type HealthCheck func(ctx context.Context) error

// SetupRouter configures all Gin routes for the application
func SetupRouter(handlers *Handlers, auth AuthConfig, health HealthCheck) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware)

	router.GET("/healthz", func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				JSONError(c, http.StatusServiceUnavailable, err, "unhealthy")
				return
			}
		}
		JSONResponse(c, http.StatusOK, gin.H{"healthy": true}, "ok")
	})

	api := router.Group("", Authenticate(auth))

	auctions := api.Group("/auctions")
	{
		auctions.POST("", handlers.CreateAuctionHandler)
		auctions.GET("/:auction_id", handlers.GetAuctionHandler)
		auctions.POST("/:auction_id/cancel", handlers.CancelAuctionHandler)
		auctions.POST("/:auction_id/bids", handlers.PlaceBidHandler)
		auctions.GET("/:auction_id/bids", handlers.ListBidsHandler)
		auctions.GET("/:auction_id/events", handlers.ListEventsHandler)
	}

	balance := api.Group("/balance")
	{
		balance.GET("", handlers.GetOwnBalanceHandler)
		balance.GET("/history", handlers.BalanceHistoryHandler)
	}

	api.GET("/users/:user_id/balance", handlers.GetUserBalanceHandler)
	api.POST("/scheduler/sweep", RequireAdmin, handlers.TriggerSweepHandler)

	return router
}
