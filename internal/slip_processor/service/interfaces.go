package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/domain/matching"
	"github.com/loan-slip-reconciler/internal/domain/shared"
)

// ProcessingService defines the interface for processing slip submissions.
// A nil error means the submission reached an outcome and its message may be acknowledged.
type ProcessingService interface {
	ProcessSubmission(ctx context.Context, submission *shared.SlipSubmission) error
}

// SlipVerifier runs the synchronous verification of one slip
type SlipVerifier interface {
	VerifySlip(ctx context.Context, submission *shared.SlipSubmission) (matching.Result, error)
}

// SubmissionTracker reads and advances the audit status of queued submissions
type SubmissionTracker interface {
	// AlreadyProcessed reports whether the submission already reached a terminal status
	AlreadyProcessed(ctx context.Context, submissionID uuid.UUID) (bool, error)
	MarkProcessing(ctx context.Context, submissionID uuid.UUID)
}
