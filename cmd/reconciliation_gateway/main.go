package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loan-slip-reconciler/internal/api_gateway"
	"github.com/loan-slip-reconciler/internal/api_gateway/service"
	"github.com/loan-slip-reconciler/internal/config"
	"github.com/loan-slip-reconciler/internal/data/mongo"
	"github.com/loan-slip-reconciler/internal/data/postgres"
	"github.com/loan-slip-reconciler/internal/logger"
	"github.com/loan-slip-reconciler/internal/platform/messaging/producers"
	"github.com/loan-slip-reconciler/internal/platform/ocr"
	"github.com/loan-slip-reconciler/internal/platform/persistence"
	"github.com/loan-slip-reconciler/internal/reconciliation"
	"github.com/loan-slip-reconciler/internal/slipadapter"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("reconciliation_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

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

	verificationRepo := mongo.NewVerificationRepository(log, mongoDB.Database())
	if err := verificationRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create verification indexes", "error", err)
		os.Exit(1)
	}

	// Async submissions are keyed by contract id on the slip topic
	slipProducer, err := producers.NewSlipSubmissionProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize slip submission producer", "error", err)
		os.Exit(1)
	}

	validator := slipadapter.NewValidator(&cfg.Slip)
	extractor := slipadapter.NewExtractor(
		log.With("component", "slip_extractor"),
		ocr.NewClient(log.With("component", "ocr_client"), &cfg.OCR),
		&cfg.OCR,
	)

	gateway := reconciliation.NewGateway(reconciliation.Dependencies{
		TxRunner:  postgresDB,
		Contracts: postgres.NewContractRepository(log, postgresDB),
		Schedules: postgres.NewScheduleRepository(log, postgresDB),
		Bindings:  postgres.NewSlipBindingRepository(log, postgresDB),
		Outbox:    postgres.NewOutboxRepository(log, postgresDB),
		Validator: validator,
		Extractor: extractor,
		Audit:     reconciliation.NewAuditRecorder(verificationRepo, log),
	}, &cfg.Matching, log)

	submissionService := service.NewSubmissionService(log, verificationRepo, validator, slipProducer)

	server := api_gateway.NewServer(log, cfg, gateway, submissionService)
	log.Info("REST server initialized",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Drain in-flight requests before closing what they depend on
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = slipProducer.Close(); err != nil {
		log.Error("Error closing slip submission producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
