package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/verification"
	"github.com/loan-slip-reconciler/internal/platform/messaging/producers"
	"github.com/loan-slip-reconciler/internal/reconciliation"
	"github.com/loan-slip-reconciler/internal/slipadapter"
)

// SubmissionServiceImpl implements the SubmissionService interface
type SubmissionServiceImpl struct {
	verificationRepo verification.Repository
	validator        reconciliation.SlipValidator
	producer         producers.MessagePublisher
	logger           *slog.Logger
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	logger *slog.Logger,
	verificationRepo verification.Repository,
	validator reconciliation.SlipValidator,
	producer producers.MessagePublisher,
) SubmissionService {
	return &SubmissionServiceImpl{
		verificationRepo: verificationRepo,
		validator:        validator,
		producer:         producer,
		logger:           logger,
	}
}

// SubmitSlip rejects a malformed image before anything is stored, then records the
// submission as RECEIVED and publishes it keyed by contract id so that slips of one
// contract are processed in order.
func (s *SubmissionServiceImpl) SubmitSlip(ctx context.Context, submission *shared.SlipSubmission) (*verification.Record, error) {
	logger := s.logger.With(
		"submission_id", submission.SubmissionID.String(),
		"contract_id", submission.ContractID.String(),
	)

	if err := s.validator.Validate(submission.ImageBase64, submission.MimeType); err != nil {
		inputErr := shared.InputError{Reason: err.Error(), Err: err}
		var vErr slipadapter.ValidationError
		if errors.As(err, &vErr) {
			inputErr.Reason = vErr.Reason
		}
		logger.Info("Slip submission rejected", "reason", inputErr.Reason)
		return nil, inputErr
	}

	record := verification.NewRecord(submission)
	if err := s.verificationRepo.Create(ctx, record); err != nil {
		logger.Error("Failed to create verification record", "error", err)
		return nil, err
	}

	if err := s.producer.Publish(ctx, submission.ContractID.String(), submission); err != nil {
		logger.Error("Failed to publish slip submission", "error", err)
		if updateErr := s.verificationRepo.UpdateStatus(ctx, submission.SubmissionID,
			shared.VerificationStatusFailed, shared.FailureReasonUnknownError); updateErr != nil {
			logger.Error("Failed to mark unpublished submission as failed", "error", updateErr)
		}
		return nil, err
	}

	logger.Info("Slip submission published")
	return record, nil
}

// GetVerification retrieves the audit record of a submission. Returns nil if not found
func (s *SubmissionServiceImpl) GetVerification(ctx context.Context, submissionID uuid.UUID) (*verification.Record, error) {
	record, err := s.verificationRepo.GetBySubmissionID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, verification.ErrRecordNotFound{}) {
			s.logger.Info("Verification record not found", "submission_id", submissionID.String())
			return nil, nil
		}
		s.logger.Error("Failed to get verification record", "submission_id", submissionID.String(), "error", err)
		return nil, err
	}
	return record, nil
}

// GetVerificationsByContractID retrieves a page of a contract's audit records
func (s *SubmissionServiceImpl) GetVerificationsByContractID(ctx context.Context, contractID uuid.UUID, page, perPage int) ([]*verification.Record, int64, error) {
	offset := (page - 1) * perPage

	records, err := s.verificationRepo.GetByContractID(ctx, contractID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.verificationRepo.CountByContractID(ctx, contractID)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
