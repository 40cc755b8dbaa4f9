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
	"github.com/fleetwatch/fleetwatch/internal/handlers"
	"github.com/fleetwatch/fleetwatch/internal/middleware"
	"github.com/fleetwatch/fleetwatch/internal/notify"
	"github.com/fleetwatch/fleetwatch/internal/services"
	"github.com/fleetwatch/fleetwatch/internal/ws"
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

	log.Printf("Starting FleetWatch mentor service...")

	if cfg.AdminPassword == "" {
		log.Fatalf("ADMIN_PASSWORD is not set")
	}

	passwordHash, err := middleware.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	// The ingest path stays open: the devices service forwards alerts
	// machine-to-machine without credentials.
	jwtAuthMiddleware := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/ingest/*",
			"/auth/login",
		},
	})
	log.Printf("Dashboard authentication enabled for user: %s", cfg.AdminUsername)

	db, err := database.Connect(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Database connection established")

	if err := database.MigrateMentor(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	dashboardService := services.NewDashboardService(db)

	hub := ws.NewHub()
	stop := make(chan struct{})
	go hub.Run(stop)

	notifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackAlertsChannel)
	if notifier != nil {
		log.Printf("Slack notifications enabled for channel %s", cfg.SlackAlertsChannel)
	} else {
		log.Printf("Slack notifications disabled (set SLACK_BOT_TOKEN and SLACK_ALERTS_CHANNEL to enable)")
	}

	mentorHandler := handlers.NewMentorHandler(dashboardService, hub, notifier)
	authHandler := handlers.NewAuthHandler(jwtAuthMiddleware)
	wsHandler := handlers.NewAlertsWSHandler(hub)
	healthHandler := handlers.NewHealthHandler("mentor-service")

	mux := http.NewServeMux()
	mentorHandler.SetupRoutes(mux)
	authHandler.SetupRoutes(mux)
	wsHandler.SetupRoutes(mux)
	healthHandler.SetupRoutes(mux)

	corsMiddleware := middleware.NewCORSMiddleware(cfg.AllowedOrigins...)
	handler := corsMiddleware.Wrap(jwtAuthMiddleware.Wrap(middleware.RequestIDMiddleware(mux)))

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

	log.Printf("Alert ingest endpoint: http://localhost:%d/ingest/alerts", cfg.HTTPPort)
	log.Printf("Dashboard API base URL: http://localhost:%d/api", cfg.HTTPPort)
	log.Printf("Live alert feed: ws://localhost:%d/ws/alerts", cfg.HTTPPort)

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
