package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crav-platform/credit-ledger/internal/config"
	"github.com/crav-platform/credit-ledger/internal/data/postgres"
	"github.com/crav-platform/credit-ledger/internal/ledger_api"
	"github.com/crav-platform/credit-ledger/internal/ledger_api/jobs"
	"github.com/crav-platform/credit-ledger/internal/ledger_api/service"
	"github.com/crav-platform/credit-ledger/internal/logger"
	"github.com/crav-platform/credit-ledger/internal/platform/messaging/producers"
	"github.com/crav-platform/credit-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize PostgreSQL with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for billing webhook ingestion
	billingProducer, err := producers.NewBillingEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize billing event Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	balanceRepo := postgres.NewBalanceRepository(log, postgresDB)
	subscriptionRepo := postgres.NewSubscriptionRepository(log, postgresDB)

	// Initialize services
	reservations := service.NewReservationTable(cfg.Reservation.TTL)
	entitlementService := service.NewEntitlementService(log, postgresDB, ledgerRepo, balanceRepo, subscriptionRepo, reservations)
	balanceService := service.NewBalanceService(log, postgresDB, ledgerRepo, balanceRepo)
	usageService := service.NewUsageService(log, ledgerRepo, subscriptionRepo)
	webhookService := service.NewWebhookService(log, billingProducer)

	// Initialize background jobs (reservation sweep, drift check)
	scheduler, err := jobs.NewScheduler(log, cfg, entitlementService, balanceService)
	if err != nil {
		log.Error("Failed to initialize job scheduler", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	// Initialize REST server
	server := ledger_api.NewServer(log, cfg, entitlementService, balanceService, usageService, webhookService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop background jobs
	scheduler.Stop()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = billingProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
