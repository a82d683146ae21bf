package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/loan-slip-reconciler/internal/domain/shared"
)

// WorkerPoolProcessingService bounds how many submissions are verified at once
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessSubmission runs the submission on a pooled worker and waits for its result.
// A panicking worker is reported as an error so the message is redelivered.
func (s *WorkerPoolProcessingService) ProcessSubmission(ctx context.Context, submission *shared.SlipSubmission) error {
	logger := s.logger
	if submission.CorrelationID != "" {
		logger = s.logger.With("correlation_id", submission.CorrelationID)
	}

	logger.Debug("Submitting slip to worker pool",
		"submission_id", submission.SubmissionID.String(),
		"contract_id", submission.ContractID.String(),
	)

	resultChan := make(chan error, 1)
	submissionCopy := *submission

	err := s.pool.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("Worker panicked while processing slip",
					"submission_id", submissionCopy.SubmissionID.String(),
					"panic", p,
				)
				resultChan <- fmt.Errorf("worker panicked: %v", p)
			}
		}()
		resultChan <- s.baseService.ProcessSubmission(ctx, &submissionCopy)
	})
	if err != nil {
		logger.Error("Failed to submit slip to worker pool",
			"submission_id", submission.SubmissionID.String(),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
