package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loan-slip-reconciler/internal/domain/outbox"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/verification"
)

// AuditPublisher copies committed verification outcomes into the audit trail
type AuditPublisher interface {
	PublishToAudit(ctx context.Context, message *outbox.Message) error
}

// AuditPublisherImpl implements AuditPublisher
type AuditPublisherImpl struct {
	outboxRepo       outbox.Repository
	verificationRepo verification.Repository
	logger           *slog.Logger
}

// NewAuditPublisher creates a new publisher
func NewAuditPublisher(
	outboxRepo outbox.Repository,
	verificationRepo verification.Repository,
	logger *slog.Logger,
) AuditPublisher {
	return &AuditPublisherImpl{
		outboxRepo:       outboxRepo,
		verificationRepo: verificationRepo,
		logger:           logger,
	}
}

// PublishToAudit writes the record carried by the message and marks the message
// PROCESSED. Save replaces the stored record, so a retry after a failed status update
// writes the same document again.
func (p *AuditPublisherImpl) PublishToAudit(ctx context.Context, message *outbox.Message) error {
	record, err := message.GetVerificationRecord()
	if err != nil {
		p.logger.Error("Failed to unmarshal verification record from outbox payload",
			"outbox_id", message.ID, "submission_id", message.SubmissionID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if record.CorrelationID != "" {
		logger = p.logger.With("correlation_id", record.CorrelationID)
	}

	if err := p.verificationRepo.Save(ctx, record); err != nil {
		logger.Error("Failed to save verification record", "submission_id", record.SubmissionID.String(), "error", err)
		return fmt.Errorf("failed to save verification record %s: %w", record.SubmissionID.String(), err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "submission_id", record.SubmissionID.String(), "error", err,
		)
		return fmt.Errorf("audit write for %s OK, but failed to mark outbox %d as PROCESSED: %w", record.SubmissionID.String(), message.ID, err)
	}

	logger.Info("Verification outcome copied to audit trail",
		"outbox_id", message.ID,
		"submission_id", record.SubmissionID.String(),
		"outcome", string(record.Outcome),
	)
	return nil
}
