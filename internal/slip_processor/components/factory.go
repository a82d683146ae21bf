package components

import (
	"log/slog"

	"github.com/loan-slip-reconciler/internal/config"
	"github.com/loan-slip-reconciler/internal/domain/verification"
	"github.com/loan-slip-reconciler/internal/slip_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
// The returned shutdown func releases the worker pool and is never nil.
func CreateProcessingService(
	verifier service.SlipVerifier,
	verificationRepo verification.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) (service.ProcessingService, func()) {
	tracker := NewSubmissionTracker(verificationRepo, logger)
	baseService := service.NewProcessingService(verifier, tracker, logger)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService, func() {}
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService, workerPoolService.Shutdown
}
