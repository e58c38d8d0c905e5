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
	"dispatch/internal/domain"
	"dispatch/internal/handler"
	"dispatch/internal/pricing"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/routing"
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
	server, janitor, err := wireServer(ctx, db, redisClient, nrApp, cfg)
	if err != nil {
		log.Fatalf("failed to wire server: %v", err)
	}

	// Background sweep of offers whose orders left the bidding pool.
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()
	go janitor.Run(janitorCtx)

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

	janitorCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server plus the
// offer janitor to run alongside it.
func wireServer(ctx context.Context, db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.OfferJanitor, error) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient, cfg.Location.SampleTTL)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	eventStore := internalRedis.NewEventStore(redisClient)

	// Initialize repositories.
	orderRepo := postgres.NewOrderRepository(db)
	offerRepo := postgres.NewOfferRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	villageRepo := postgres.NewVillageRepository(db)

	// Pricing works off an in-memory village table loaded at startup.
	villageRows, err := villageRepo.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	villages := make([]domain.Village, 0, len(villageRows))
	for _, v := range villageRows {
		villages = append(villages, *v)
	}
	engine := pricing.NewEngine(pricing.Config{
		BaseFare:      cfg.Pricing.BaseFare,
		PerKmRate:     cfg.Pricing.PerKmRate,
		SameZoneFare:  cfg.Pricing.SameZoneFare,
		MinFare:       cfg.Pricing.MinFare,
		MaxFare:       cfg.Pricing.MaxFare,
		FoodPerKmRate: cfg.Pricing.FoodPerKm,
		Multipliers:   pricing.DefaultMultipliers(),
		ZoneRadiusKm:  cfg.Pricing.ZoneRadiusKm,
	}, villages)

	resolver := routing.NewResolver(cfg.Routing.OSRMURL, cfg.Routing.Timeout)

	// Initialize services.
	orderService := service.NewOrderService(orderRepo, offerRepo, driverRepo, engine, resolver, eventStore, cfg.Offers.Window)
	offerService := service.NewOfferService(db, offerRepo, orderRepo, driverRepo, lockStore, cacheStore, eventStore)
	locationService := service.NewLocationService(locationStore, cfg.Location.MaxSampleAge)
	driverService := service.NewDriverService(driverRepo, cacheStore, locationService)
	janitor := service.NewOfferJanitor(offerRepo, cfg.Offers.JanitorInterval)

	// Initialize handlers.
	orderHandler := handler.NewOrderHandler(orderService, orderRepo)
	offerHandler := handler.NewOfferHandler(offerService)
	driverHandler := handler.NewDriverHandler(driverService)
	locationHandler := handler.NewLocationHandler(locationService)
	villageHandler := handler.NewVillageHandler(villageRepo)
	trackHandler := handler.NewTrackHandler(locationService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		OrderHandler:    orderHandler,
		OfferHandler:    offerHandler,
		DriverHandler:   driverHandler,
		LocationHandler: locationHandler,
		VillageHandler:  villageHandler,
		TrackHandler:    trackHandler,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, janitor, nil
}
