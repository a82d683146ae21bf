package verification

import (
	"time"

	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/domain/matching"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/slip"
)

// Record is the audit trail entry of one slip verification
type Record struct {
	SubmissionID  uuid.UUID                 `json:"submission_id" bson:"submission_id"`
	ContractID    uuid.UUID                 `json:"contract_id" bson:"contract_id"`
	CorrelationID string                    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Status        shared.VerificationStatus `json:"status" bson:"status"`
	Outcome       matching.Outcome          `json:"outcome,omitempty" bson:"outcome,omitempty"`
	EntryID       uuid.UUID                 `json:"entry_id" bson:"entry_id"`
	Sequence      int                       `json:"sequence,omitempty" bson:"sequence,omitempty"`
	Confidence    matching.Confidence       `json:"confidence,omitempty" bson:"confidence,omitempty"`
	Reason        string                    `json:"reason,omitempty" bson:"reason,omitempty"`
	CandidateIDs  []uuid.UUID               `json:"candidate_ids,omitempty" bson:"candidate_ids,omitempty"`
	TransactionID string                    `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	Amount        string                    `json:"amount,omitempty" bson:"amount,omitempty"` // Decimal string, never float
	SlipTimestamp *time.Time                `json:"slip_timestamp,omitempty" bson:"slip_timestamp,omitempty"`
	FailureReason shared.FailureReason      `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	ErrorMessage  string                    `json:"error_message,omitempty" bson:"error_message,omitempty"`
	CreatedAt     time.Time                 `json:"created_at" bson:"created_at"`
	ProcessedAt   *time.Time                `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// NewRecord starts the audit record of a submission in RECEIVED state
func NewRecord(submission *shared.SlipSubmission) *Record {
	createdAt := submission.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &Record{
		SubmissionID:  submission.SubmissionID,
		ContractID:    submission.ContractID,
		CorrelationID: submission.CorrelationID,
		Status:        shared.VerificationStatusReceived,
		CreatedAt:     createdAt,
	}
}

// Complete records a matching decision
func (r *Record) Complete(result matching.Result, extracted *slip.Record, now time.Time) {
	r.Status = shared.VerificationStatusCompleted
	r.Outcome = result.Outcome
	r.EntryID = result.EntryID
	r.Sequence = result.Sequence
	r.Confidence = result.Confidence
	r.Reason = result.Reason
	r.CandidateIDs = result.CandidateIDs
	r.FailureReason = ""
	r.ErrorMessage = ""

	if extracted != nil {
		ts := extracted.Timestamp
		r.TransactionID = extracted.TransactionID
		r.Amount = extracted.Amount.StringFixed(2)
		r.SlipTimestamp = &ts
	}

	r.ProcessedAt = &now
}

// Fail records a verification that ended without a decision
func (r *Record) Fail(reason shared.FailureReason, message string, now time.Time) {
	r.Status = shared.VerificationStatusFailed
	r.FailureReason = reason
	r.ErrorMessage = message
	r.ProcessedAt = &now
}
