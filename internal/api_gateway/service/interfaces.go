package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/matching"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/verification"
	"github.com/loan-slip-reconciler/internal/reconciliation"
)

// ReconciliationService is the synchronous surface of the reconciliation gateway
type ReconciliationService interface {
	// ComputeSchedule generates a schedule without persisting it
	// Returns shared.InputError for invalid terms
	ComputeSchedule(terms contract.Terms) ([]*schedule.Entry, error)

	// CreateContract persists a contract together with its generated schedule
	CreateContract(ctx context.Context, terms contract.Terms) (*contract.Contract, []*schedule.Entry, error)

	// GetContract returns contract.ErrContractNotFound if the contract doesn't exist
	GetContract(ctx context.Context, id uuid.UUID) (*contract.Contract, error)

	// GetSchedule returns the contract's entries ordered by sequence
	GetSchedule(ctx context.Context, contractID uuid.UUID) ([]*schedule.Entry, error)

	// GetAgingSummary classifies the schedule as of a civil date and persists what changed
	GetAgingSummary(ctx context.Context, contractID uuid.UUID, asOf time.Time) (*reconciliation.AgingSummary, error)

	// VerifySlip runs validation, extraction, matching and binding for one slip
	VerifySlip(ctx context.Context, submission *shared.SlipSubmission) (matching.Result, error)
}

// SubmissionService handles asynchronous slip submissions and their audit records
type SubmissionService interface {
	// SubmitSlip validates the image, records the submission and queues it for processing
	// Returns shared.InputError when the image is rejected
	SubmitSlip(ctx context.Context, submission *shared.SlipSubmission) (*verification.Record, error)

	// GetVerification retrieves the audit record of a submission
	// Returns nil if the record is not found
	GetVerification(ctx context.Context, submissionID uuid.UUID) (*verification.Record, error)

	// GetVerificationsByContractID retrieves a page of a contract's audit records
	// Returns records, total count, and any error
	GetVerificationsByContractID(ctx context.Context, contractID uuid.UUID, page, perPage int) ([]*verification.Record, int64, error)
}

var _ ReconciliationService = (*reconciliation.Gateway)(nil)
