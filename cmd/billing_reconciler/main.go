package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/crav-platform/credit-ledger/internal/config"
	"github.com/crav-platform/credit-ledger/internal/data/mongo"
	"github.com/crav-platform/credit-ledger/internal/data/postgres"
	"github.com/crav-platform/credit-ledger/internal/logger"
	"github.com/crav-platform/credit-ledger/internal/platform/messaging/consumers"
	"github.com/crav-platform/credit-ledger/internal/platform/messaging/producers"
	"github.com/crav-platform/credit-ledger/internal/platform/persistence"
	"github.com/crav-platform/credit-ledger/internal/reconciler/archive_poller"
	"github.com/crav-platform/credit-ledger/internal/reconciler/components"
	"github.com/crav-platform/credit-ledger/internal/reconciler/consumer"
	"github.com/crav-platform/credit-ledger/internal/reconciler/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("billing_reconciler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Billing Reconciler",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	balanceRepo := postgres.NewBalanceRepository(log, postgresDB)
	subscriptionRepo := postgres.NewSubscriptionRepository(log, postgresDB)
	archiveRepo := postgres.NewArchiveRepository(log, postgresDB)
	archiveStore := mongo.NewArchiveStore(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize reconcile service with separated concerns
	reconcileService := components.CreateReconcileService(
		postgresDB,
		ledgerRepo,
		balanceRepo,
		subscriptionRepo,
		archiveRepo,
		log,
		cfg,
	)

	// Initialize billing event handler
	billingEventHandler := consumer.NewBillingEventHandler(
		log,
		reconcileService,
		dlqProducer,
	)

	// Initialize archive poller
	archiveShipper := archive_poller.NewArchiveShipper(
		archiveRepo,
		archiveStore,
		log,
	)
	poller := archive_poller.NewPoller(
		&cfg.Archive,
		archiveRepo,
		archiveShipper,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.BillingEventTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.BillingEventTopic, cfg.Kafka.ConsumerGroup, billingEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start archive poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Archive Poller",
			"interval", cfg.Archive.PollingInterval.String(),
			"batch_size", cfg.Archive.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool if it's a WorkerPoolReconcileService
	if wpService, ok := reconcileService.(*service.WorkerPoolReconcileService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Billing Reconciler shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Billing Reconciler shutdown completed with errors")
	} else {
		log.Info("Billing Reconciler shutdown completed successfully")
	}
}
