package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/loan-slip-reconciler/internal/config"
	"github.com/loan-slip-reconciler/internal/data/mongo"
	"github.com/loan-slip-reconciler/internal/data/postgres"
	"github.com/loan-slip-reconciler/internal/logger"
	"github.com/loan-slip-reconciler/internal/platform/messaging/consumers"
	"github.com/loan-slip-reconciler/internal/platform/messaging/producers"
	"github.com/loan-slip-reconciler/internal/platform/ocr"
	"github.com/loan-slip-reconciler/internal/platform/persistence"
	"github.com/loan-slip-reconciler/internal/reconciliation"
	"github.com/loan-slip-reconciler/internal/slip_processor/components"
	"github.com/loan-slip-reconciler/internal/slip_processor/consumer"
	"github.com/loan-slip-reconciler/internal/slip_processor/outbox_poller"
	"github.com/loan-slip-reconciler/internal/slipadapter"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("slip_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Slip Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	verificationRepo := mongo.NewVerificationRepository(log, mongoDB.Database())
	if err := verificationRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create verification indexes", "error", err)
		os.Exit(1)
	}

	gateway := reconciliation.NewGateway(reconciliation.Dependencies{
		TxRunner:  postgresDB,
		Contracts: postgres.NewContractRepository(log, postgresDB),
		Schedules: postgres.NewScheduleRepository(log, postgresDB),
		Bindings:  postgres.NewSlipBindingRepository(log, postgresDB),
		Outbox:    outboxRepo,
		Validator: slipadapter.NewValidator(&cfg.Slip),
		Extractor: slipadapter.NewExtractor(
			log.With("component", "slip_extractor"),
			ocr.NewClient(log.With("component", "ocr_client"), &cfg.OCR),
			&cfg.OCR,
		),
		Audit: reconciliation.NewAuditRecorder(verificationRepo, log),
	}, &cfg.Matching, log)

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// a nil *DLQProducer must not reach the handler as a non-nil interface
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	processingService, shutdownWorkers := components.CreateProcessingService(gateway, verificationRepo, log, cfg)

	submissionHandler := consumer.NewSlipSubmissionHandler(
		log,
		processingService,
		components.NewSubmissionTracker(verificationRepo, log),
		deadLetters,
	)

	auditPublisher := outbox_poller.NewAuditPublisher(outboxRepo, verificationRepo, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, auditPublisher, log)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.SlipTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, submissionHandler.HandleMessage, submissionHandler.HandleExhausted); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Outbox poller stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	shutdownWorkers()

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Slip Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Slip Processor shutdown completed with errors")
	} else {
		log.Info("Slip Processor shutdown completed successfully")
	}
}
