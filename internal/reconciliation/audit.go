package reconciliation

import (
	"context"
	"log/slog"

	"github.com/loan-slip-reconciler/internal/domain/verification"
)

// AuditRecorder writes verification outcomes to the audit trail. Writes are best
// effort: a failure is logged and never changes the caller's result.
type AuditRecorder struct {
	repo   verification.Repository
	logger *slog.Logger
}

// NewAuditRecorder creates an audit recorder
func NewAuditRecorder(repo verification.Repository, logger *slog.Logger) *AuditRecorder {
	return &AuditRecorder{
		repo:   repo,
		logger: logger,
	}
}

// Record stores the current state of a verification record
func (r *AuditRecorder) Record(ctx context.Context, record *verification.Record) {
	if r == nil || r.repo == nil {
		return
	}

	logger := r.logger
	if record.CorrelationID != "" {
		logger = r.logger.With("correlation_id", record.CorrelationID)
	}

	if err := r.repo.Save(ctx, record); err != nil {
		logger.Error("Failed to record verification outcome",
			"submission_id", record.SubmissionID.String(),
			"status", string(record.Status),
			"error", err,
		)
		return
	}
	logger.Debug("Verification outcome recorded",
		"submission_id", record.SubmissionID.String(),
		"status", string(record.Status),
		"outcome", string(record.Outcome),
	)
}
