package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitalscan/breathmon/backend/internal/adapters/cache"
	"github.com/vitalscan/breathmon/backend/internal/adapters/database"
	"github.com/vitalscan/breathmon/backend/internal/adapters/dispatch"
	"github.com/vitalscan/breathmon/backend/internal/adapters/events"
	"github.com/vitalscan/breathmon/backend/internal/adapters/status"
	"github.com/vitalscan/breathmon/backend/internal/api/handlers"
	"github.com/vitalscan/breathmon/backend/internal/api/routes"
	"github.com/vitalscan/breathmon/backend/internal/application/services"
	"github.com/vitalscan/breathmon/backend/internal/domain/providers"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/clients/openai"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/clients/postgres"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/clients/redis"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/clients/xai"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/notifications"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/observability"
	"github.com/vitalscan/breathmon/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, os.Getenv("APP_ENV"))

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client. The status store is load-bearing: without
	// it every slot would look not_started forever.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize Redis client: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis client initialized successfully")

	// Initialize adapters
	patientAdapter := database.NewPatientAdapter(pgClient)
	readingAdapter := database.NewSensorReadingAdapter(pgClient)
	jobAdapter := database.NewReportJobAdapter(pgClient)

	statusStore := status.NewRedisStatusStore(redisClient)
	cacheProvider := cache.NewRedisAdapter(redisClient)
	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	// Initialize generation backends
	textGen, err := openai.NewClient(&cfg.OpenAI)
	if err != nil {
		log.Fatalf("Failed to initialize text generation client: %v", err)
	}
	imageGen, err := xai.NewClient(&cfg.XAI)
	if err != nil {
		log.Fatalf("Failed to initialize imaging analysis client: %v", err)
	}

	// Initialize background worker pool
	dispatcher := dispatch.NewPoolDispatcher(cfg.Dispatch.Workers, cfg.Dispatch.QueueSize)
	defer dispatcher.Close()

	// Initialize services
	reportService := services.NewReportService(
		jobAdapter,
		patientAdapter,
		readingAdapter,
		textGen,
		imageGen,
		statusStore,
		dispatcher,
	).WithEventBus(eventBus).WithMetrics(metrics)

	var notifier providers.NotificationSender
	if cfg.Notifications.Enabled {
		notifier, err = notifications.NewWhatsAppCloudSender(&cfg.Notifications)
		if err != nil {
			log.Printf("Warning: notifications disabled: %v", err)
		} else {
			reportService.WithNotifier(notifier)
			log.Println("WhatsApp notifications enabled")
		}
	}

	patientService := services.NewPatientService(patientAdapter, readingAdapter, cacheProvider, metrics)

	// Initialize handlers
	reportHandler := handlers.NewReportHandler(reportService)
	patientHandler := handlers.NewPatientHandler(patientService)
	sseHandler := handlers.NewSSEHandler(eventBus)

	// Set up routes
	router := routes.NewRouter(reportHandler, patientHandler, sseHandler, metrics)
	handler := router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
