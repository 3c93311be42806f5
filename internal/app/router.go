package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	OrderHandler  *handler.OrderHandler
	PlanHandler   *handler.PlanHandler
	DriverHandler *handler.DriverHandler
	UserHandler   *handler.UserHandler
	EventsHandler *handler.EventsHandler
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

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// User routes.
		users := v1.Group("/users")
		{
			users.POST("/register", deps.UserHandler.Register)
			users.GET("", deps.UserHandler.ListUsers)
			users.GET("/:id", deps.UserHandler.GetUser)
		}

		// Order routes.
		orders := v1.Group("/orders")
		{
			orders.POST("", deps.OrderHandler.CreateOrder)
			orders.POST("/estimate", deps.OrderHandler.Estimate)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.POST("/:id/cancel", deps.OrderHandler.CancelOrder)
			orders.POST("/:id/start", deps.OrderHandler.StartTrip)
			orders.POST("/:id/arrive", deps.OrderHandler.DriverArrived)
			orders.POST("/:id/complete", deps.OrderHandler.CompleteTrip)
			orders.POST("/:id/rate", deps.OrderHandler.RateOrder)
		}

		// Trip history.
		v1.GET("/trips", deps.OrderHandler.ListTrips)

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("/register", deps.DriverHandler.Register)
			drivers.GET("", deps.DriverHandler.ListDrivers)
			drivers.GET("/:id", deps.DriverHandler.GetDriver)
			drivers.PUT("/:id", deps.DriverHandler.UpdateProfile)
			drivers.POST("/:id/location", deps.DriverHandler.UpdateLocation)
			drivers.GET("/:id/location", deps.DriverHandler.GetLocation)
			drivers.DELETE("/:id/location", deps.DriverHandler.ClearLocation)
			drivers.POST("/:id/orders", deps.OrderHandler.AcceptOrder)
			drivers.GET("/:id/reviews", deps.OrderHandler.ListReviews)
		}

		// Scheduled plan routes.
		plans := v1.Group("/plans")
		{
			plans.POST("", deps.PlanHandler.CreatePlan)
			plans.GET("", deps.PlanHandler.ListPlans)
			plans.GET("/:id", deps.PlanHandler.GetPlan)
			plans.PUT("/:id", deps.PlanHandler.UpdatePlan)
			plans.DELETE("/:id", deps.PlanHandler.DeletePlan)
			plans.GET("/:id/executions", deps.PlanHandler.ListExecutions)
		}

		// Live event stream.
		v1.GET("/events", deps.EventsHandler.Stream)
	}

	return router
}
