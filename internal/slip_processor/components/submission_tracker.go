package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/verification"
	"github.com/loan-slip-reconciler/internal/slip_processor/service"
)

var _ service.SubmissionTracker = (*SubmissionTrackerImpl)(nil)

// SubmissionTrackerImpl keeps redelivered submissions from being verified twice
type SubmissionTrackerImpl struct {
	verificationRepo verification.Repository
	logger           *slog.Logger
}

func NewSubmissionTracker(verificationRepo verification.Repository, logger *slog.Logger) *SubmissionTrackerImpl {
	return &SubmissionTrackerImpl{
		verificationRepo: verificationRepo,
		logger:           logger,
	}
}

// AlreadyProcessed reports whether the audit record of the submission is terminal.
// A missing record is not an error: the gateway may have lost its write.
func (t *SubmissionTrackerImpl) AlreadyProcessed(ctx context.Context, submissionID uuid.UUID) (bool, error) {
	record, err := t.verificationRepo.GetBySubmissionID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, verification.ErrRecordNotFound{}) {
			return false, nil
		}
		t.logger.Error("Failed to check submission status", "submission_id", submissionID.String(), "error", err)
		return false, err
	}

	if record.Status.IsTerminal() {
		t.logger.Info("Submission already in terminal state",
			"submission_id", submissionID.String(),
			"status", string(record.Status),
		)
		return true, nil
	}
	return false, nil
}

// MarkProcessing flags the submission as picked up. Failures are only logged.
func (t *SubmissionTrackerImpl) MarkProcessing(ctx context.Context, submissionID uuid.UUID) {
	err := t.verificationRepo.UpdateStatus(ctx, submissionID, shared.VerificationStatusProcessing, "")
	if err != nil && !errors.Is(err, verification.ErrRecordNotFound{}) {
		t.logger.Warn("Failed to mark submission as processing", "submission_id", submissionID.String(), "error", err)
	}
}

// MarkFailed stores a FAILED audit record for the submission, creating it when the
// gateway's RECEIVED record is missing.
func (t *SubmissionTrackerImpl) MarkFailed(ctx context.Context, submission *shared.SlipSubmission, reason shared.FailureReason, message string) error {
	record := verification.NewRecord(submission)
	record.Fail(reason, message, time.Now().UTC())

	if err := t.verificationRepo.Save(ctx, record); err != nil {
		t.logger.Error("Failed to mark submission as failed",
			"submission_id", submission.SubmissionID.String(),
			"reason", string(reason),
			"error", err,
		)
		return err
	}
	return nil
}
