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

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"payledger/internal/app"
	"payledger/internal/config"
	"payledger/internal/events/kafka"
	"payledger/internal/handler"
	internalRedis "payledger/internal/redis"
	"payledger/internal/repository/postgres"
	"payledger/internal/service"
)

func main() {
	// Load .env if present, then configuration from the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
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
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
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

	// Event publisher: Kafka when configured, log fallback otherwise.
	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaPub := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPub.Close()
		publisher = kafkaPub
		log.Printf("Kafka publisher enabled: topic=%s", cfg.Kafka.Topic)
	} else {
		publisher = service.NewLogPublisher()
	}

	// Wire dependencies.
	server, err := wireServer(ctx, db, redisClient, publisher, nrApp, cfg)
	if err != nil {
		log.Fatalf("failed to initialize ledger: %v", err)
	}

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(ctx context.Context, db *sql.DB, redisClient *redis.Client, publisher service.EventPublisher, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, error) {
	// Initialize repository and read cache.
	ledgerRepo := postgres.NewLedgerRepository(db)
	recordCache := internalRedis.NewRecordCache(redisClient)

	// Initialize the ledger. This restores the gate state and warms the
	// dedup index from the repository.
	ledgerService, err := service.NewLedgerService(ctx, ledgerRepo, recordCache, publisher, cfg.Ledger.Authority)
	if err != nil {
		return nil, err
	}
	log.Printf("Ledger restored: %d records, paused=%v", ledgerService.TotalPayments(), ledgerService.Paused())

	// Initialize handlers.
	ledgerHandler := handler.NewLedgerHandler(ledgerService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		LedgerHandler: ledgerHandler,
		RedisClient:   redisClient,
		NewRelicApp:   nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
