package shared

// VerificationStatus defines slip verification processing states
type VerificationStatus string

const (
	VerificationStatusReceived   VerificationStatus = "RECEIVED"
	VerificationStatusProcessing VerificationStatus = "PROCESSING"
	VerificationStatusCompleted  VerificationStatus = "COMPLETED"
	VerificationStatusFailed     VerificationStatus = "FAILED"
)

// IsTerminal reports whether no further processing will change the status
func (s VerificationStatus) IsTerminal() bool {
	return s == VerificationStatusCompleted || s == VerificationStatusFailed
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// FailureReason categorises verifications that ended without a decision
type FailureReason string

const (
	FailureReasonInvalidInput            FailureReason = "INVALID_INPUT"
	FailureReasonVerificationUnavailable FailureReason = "VERIFICATION_UNAVAILABLE"
	FailureReasonContractNotFound        FailureReason = "CONTRACT_NOT_FOUND"
	FailureReasonUnknownError            FailureReason = "UNKNOWN_ERROR"
	FailureReasonRetriesExhausted        FailureReason = "RETRIES_EXHAUSTED"
)
