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

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/fleetwatch/fleetwatch/internal/config"
	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/forward"
	"github.com/fleetwatch/fleetwatch/internal/handlers"
	"github.com/fleetwatch/fleetwatch/internal/jobs"
	"github.com/fleetwatch/fleetwatch/internal/middleware"
	"github.com/fleetwatch/fleetwatch/internal/services"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting FleetWatch devices service...")

	db, err := database.Connect(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Database connection established")

	if err := database.MigrateDevices(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Alert forwarding to the mentor service is best-effort; an empty
	// base URL disables it and alerts stay pending.
	var forwarder *forward.Forwarder
	if cfg.MentorBaseURL != "" {
		forwarder = forward.NewForwarder(cfg.MentorBaseURL, time.Duration(cfg.ForwardTimeoutSeconds)*time.Second)
		log.Printf("Alert forwarding enabled, mentor service at %s", cfg.MentorBaseURL)
	} else {
		log.Printf("Warning: MENTOR_BASE_URL is not set, alert forwarding is disabled")
	}

	deviceService := services.NewDeviceService(db)
	alertService := services.NewAlertService(db, forwarder)

	devicesHandler := handlers.NewDevicesHandler(deviceService, alertService)
	healthHandler := handlers.NewHealthHandler("devices-service")

	mux := http.NewServeMux()
	devicesHandler.SetupRoutes(mux)
	healthHandler.SetupRoutes(mux)

	corsMiddleware := middleware.NewCORSMiddleware(cfg.AllowedOrigins...)
	handler := corsMiddleware.Wrap(middleware.RequestIDMiddleware(mux))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Start the reconciliation sweep for unforwarded alerts
	stop := make(chan struct{})
	if forwarder != nil {
		sweep := jobs.NewReconciliationJob(
			alertService,
			time.Duration(cfg.ReconcileIntervalMinutes)*time.Minute,
			cfg.ReconcileMaxAttempts,
		)
		go sweep.Start(stop)
		log.Printf("Reconciliation sweep running every %d minutes (max %d attempts per alert)",
			cfg.ReconcileIntervalMinutes, cfg.ReconcileMaxAttempts)
	}

	log.Printf("Alert endpoint: http://localhost:%d/api/alerts", cfg.HTTPPort)
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	close(stop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if err := database.Close(db); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}
