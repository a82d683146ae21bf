package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/shared"
)

type ProcessingServiceImpl struct {
	verifier SlipVerifier
	tracker  SubmissionTracker
	logger   *slog.Logger
}

func NewProcessingService(verifier SlipVerifier, tracker SubmissionTracker, logger *slog.Logger) ProcessingService {
	return &ProcessingServiceImpl{
		verifier: verifier,
		tracker:  tracker,
		logger:   logger,
	}
}

// ProcessSubmission verifies a queued slip.
//
// Rejected images, unavailable providers and unknown contracts are outcomes: they are
// already in the audit trail and the message is acknowledged. Storage failures are
// returned so that the consumer redelivers the submission.
func (s *ProcessingServiceImpl) ProcessSubmission(ctx context.Context, submission *shared.SlipSubmission) error {
	logger := s.logger.With("submission_id", submission.SubmissionID.String())
	if submission.CorrelationID != "" {
		logger = logger.With("correlation_id", submission.CorrelationID)
	}

	processed, err := s.tracker.AlreadyProcessed(ctx, submission.SubmissionID)
	if err != nil {
		return err
	}
	if processed {
		logger.Info("Submission already processed, skipping")
		return nil
	}

	s.tracker.MarkProcessing(ctx, submission.SubmissionID)

	result, err := s.verifier.VerifySlip(ctx, submission)
	if err != nil {
		var inputErr shared.InputError
		var providerErr shared.ProviderError
		switch {
		case errors.As(err, &inputErr):
			logger.Info("Submission rejected", "reason", inputErr.Reason)
			return nil
		case errors.As(err, &providerErr):
			logger.Warn("Submission could not be verified", "reason", providerErr.Reason)
			return nil
		case errors.Is(err, contract.ErrContractNotFound{}):
			logger.Warn("Submission references an unknown contract", "contract_id", submission.ContractID.String())
			return nil
		}

		logger.Error("Failed to verify submission", "error", err)
		return fmt.Errorf("verifying submission %s failed: %w", submission.SubmissionID.String(), err)
	}

	logger.Info("Submission processed",
		"contract_id", submission.ContractID.String(),
		"outcome", string(result.Outcome),
		"sequence", result.Sequence,
	)
	return nil
}
