// Package verification holds the audit trail of slip verifications.
package verification

import (
	"context"

	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/domain/shared"
)

// Repository manages verification records with pagination support
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetBySubmissionID(ctx context.Context, submissionID uuid.UUID) (*Record, error)
	GetByContractID(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]*Record, error)
	CountByContractID(ctx context.Context, contractID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, submissionID uuid.UUID, status shared.VerificationStatus, reason shared.FailureReason) error

	// Save replaces the stored record of the submission, creating it when absent
	Save(ctx context.Context, record *Record) error
}

// ErrRecordNotFound indicates a missing verification record
type ErrRecordNotFound struct {
	SubmissionID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "verification record not found: " + e.SubmissionID.String()
}

// Is matches any ErrRecordNotFound when the target has no id
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.SubmissionID == uuid.Nil {
		return true
	}
	return e.SubmissionID == t.SubmissionID
}

// ErrDuplicateRecord indicates the submission id is already recorded
type ErrDuplicateRecord struct {
	SubmissionID uuid.UUID
}

func (e ErrDuplicateRecord) Error() string {
	return "duplicate verification record: " + e.SubmissionID.String()
}

// Is matches any ErrDuplicateRecord when the target has no id
func (e ErrDuplicateRecord) Is(target error) bool {
	t, ok := target.(ErrDuplicateRecord)
	if !ok {
		return false
	}
	if t.SubmissionID == uuid.Nil {
		return true
	}
	return e.SubmissionID == t.SubmissionID
}
