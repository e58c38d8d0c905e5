package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	OrderHandler    *handler.OrderHandler
	OfferHandler    *handler.OfferHandler
	DriverHandler   *handler.DriverHandler
	LocationHandler *handler.LocationHandler
	VillageHandler  *handler.VillageHandler
	TrackHandler    *handler.TrackHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check and metrics.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Order routes.
		orders := v1.Group("/orders")
		{
			orders.POST("", deps.OrderHandler.CreateOrder)
			orders.GET("", deps.OrderHandler.GetAll)
			orders.GET("/open", deps.OrderHandler.GetOpen)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.POST("/:id/cancel", deps.OrderHandler.CancelOrder)
			orders.POST("/:id/pickup", deps.OrderHandler.ConfirmPickup)
			orders.POST("/:id/deliver", deps.OrderHandler.ConfirmDelivery)
			orders.POST("/:id/withdraw", deps.OrderHandler.Withdraw)
			orders.POST("/:id/rate", deps.OrderHandler.RateOrder)
			orders.POST("/:id/offers", deps.OfferHandler.SubmitOffer)
			orders.GET("/:id/offers", deps.OfferHandler.ListOffers)
		}

		// Offer routes.
		offers := v1.Group("/offers")
		{
			offers.POST("/:id/accept", deps.OfferHandler.AcceptOffer)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("/register", deps.DriverHandler.Register)
			drivers.GET("", deps.DriverHandler.GetAll)
			drivers.GET("/nearby", deps.LocationHandler.NearbyDrivers)
			drivers.POST("/:id/location", deps.LocationHandler.PushDriverSample)
			drivers.POST("/:id/online", deps.DriverHandler.SetOnline)
			drivers.POST("/:id/offline", deps.DriverHandler.SetOffline)
		}

		// Actor location routes.
		actors := v1.Group("/actors")
		{
			actors.POST("/:id/location", deps.LocationHandler.PushActorSample)
			actors.GET("/:id/location", deps.LocationHandler.GetLatest)
		}

		// Pricing and reference data.
		v1.GET("/quote", deps.OrderHandler.Quote)
		v1.GET("/villages", deps.VillageHandler.GetAll)

		// Live tracking.
		v1.GET("/track/:id", deps.TrackHandler.Track)
	}

	return router
}
