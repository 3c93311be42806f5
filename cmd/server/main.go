package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/handler"
	"dispatch/internal/notifier"
	"dispatch/internal/pricing"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/scheduler"
	"dispatch/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, materializer := wireServer(db, redisClient, nrApp, cfg)

	// Run the materializer loop until shutdown.
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	go materializer.Run(schedCtx)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	schedCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// plan materializer.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *scheduler.Materializer) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	userRepo := postgres.NewUserRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	planRepo := postgres.NewPlanRepository(db)
	execRepo := postgres.NewExecutionRepository(db)

	// Pricing.
	calculator := pricing.NewCalculator(pricing.DefaultRateTable(), pricing.Geofence{
		MinLat: cfg.Pricing.ZoneMinLat,
		MaxLat: cfg.Pricing.ZoneMaxLat,
		MinLng: cfg.Pricing.ZoneMinLng,
		MaxLng: cfg.Pricing.ZoneMaxLng,
	})

	// Live event hub.
	hub := notifier.NewHub()

	// Initialize services.
	matchingService := service.NewMatchingService(db, driverRepo, orderRepo, lockStore, cacheStore, cfg.Matching.PickupETAMinutes)
	orderService := service.NewOrderService(orderRepo, driverRepo, matchingService, calculator, hub)
	planService := service.NewPlanService(planRepo, execRepo)
	driverService := service.NewDriverService(driverRepo, userRepo, orderRepo, locationStore, cacheStore, hub)

	// Materializer.
	materializer := scheduler.NewMaterializer(
		planRepo, execRepo, orderRepo, orderService,
		cfg.Scheduler.Window, cfg.Scheduler.TickInterval,
	)

	// Initialize handlers.
	userHandler := handler.NewUserHandler(userRepo)
	orderHandler := handler.NewOrderHandler(orderService)
	planHandler := handler.NewPlanHandler(planService)
	driverHandler := handler.NewDriverHandler(driverService)
	eventsHandler := handler.NewEventsHandler(hub)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		UserHandler:   userHandler,
		OrderHandler:  orderHandler,
		PlanHandler:   planHandler,
		DriverHandler: driverHandler,
		EventsHandler: eventsHandler,
		RedisClient:   redisClient,
		NewRelicApp:   nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, materializer
}
