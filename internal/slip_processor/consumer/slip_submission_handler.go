package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/platform/messaging/producers"
	"github.com/loan-slip-reconciler/internal/slip_processor/service"
)

var errMissingIDs = errors.New("submission_id and contract_id are required")

// FailureMarker records a terminal failure for a submission
type FailureMarker interface {
	MarkFailed(ctx context.Context, submission *shared.SlipSubmission, reason shared.FailureReason, message string) error
}

// SlipSubmissionHandler handles incoming slip submissions from Kafka
type SlipSubmissionHandler struct {
	processingService service.ProcessingService
	failures          FailureMarker
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewSlipSubmissionHandler creates a new handler. producer may be nil when no DLQ is configured.
func NewSlipSubmissionHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	failures FailureMarker,
	producer producers.DeadLetterPublisher,
) *SlipSubmissionHandler {
	return &SlipSubmissionHandler{
		processingService: processingService,
		failures:          failures,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes one Kafka message. Returning nil commits the offset.
func (h *SlipSubmissionHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var submission shared.SlipSubmission
	if err := json.Unmarshal(value, &submission); err != nil {
		return h.deadLetter(ctx, key, value, "Failed to unmarshal slip submission from Kafka message", err)
	}
	if submission.SubmissionID == uuid.Nil || submission.ContractID == uuid.Nil {
		return h.deadLetter(ctx, key, value, "Slip submission is missing identifiers", errMissingIDs)
	}

	logger := h.logger
	if submission.CorrelationID != "" {
		logger = h.logger.With("correlation_id", submission.CorrelationID)
	}

	logger.Info("Received slip submission for processing",
		"submission_id", submission.SubmissionID.String(),
		"contract_id", submission.ContractID.String(),
	)

	if err := h.processingService.ProcessSubmission(ctx, &submission); err != nil {
		logger.Error("Failed to process slip submission",
			"submission_id", submission.SubmissionID.String(),
			"error", err,
		)
		return fmt.Errorf("processing submission %s failed: %w", submission.SubmissionID.String(), err)
	}

	return nil
}

// HandleExhausted takes over a submission that kept failing. It is parked on the DLQ
// and its verification is marked FAILED so the submitter can see it will not settle.
// A nil return lets the consumer commit the offset.
func (h *SlipSubmissionHandler) HandleExhausted(ctx context.Context, key []byte, value []byte, cause error) error {
	var submission shared.SlipSubmission
	if err := json.Unmarshal(value, &submission); err != nil || submission.SubmissionID == uuid.Nil {
		if h.producer == nil {
			// nothing identifies the slip, so there is no verification to fail
			h.logger.Error("Dropping undecodable message after repeated failures",
				"message_key", string(key),
				"error", cause,
			)
			return nil
		}
		return h.deadLetter(ctx, key, value, "Slip submission failed after retries", cause)
	}

	logger := h.logger.With("submission_id", submission.SubmissionID.String())

	parked := false
	if h.producer != nil {
		reason := fmt.Sprintf("processing failed after retries: %s", cause.Error())
		if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
			logger.Error("Failed to publish exhausted submission to DLQ", "dlq_error", err, "original_error", cause)
			return fmt.Errorf("dead-lettering submission %s: %w", submission.SubmissionID.String(), err)
		}
		parked = true
		logger.Info("Published exhausted submission to DLQ", "reason", reason)
	}

	if err := h.failures.MarkFailed(ctx, &submission, shared.FailureReasonRetriesExhausted, cause.Error()); err != nil {
		if parked {
			logger.Error("Submission dead-lettered but could not be marked failed", "error", err)
			return nil
		}
		return fmt.Errorf("marking submission %s failed: %w", submission.SubmissionID.String(), err)
	}

	logger.Warn("Submission marked failed after repeated processing errors", "error", cause)
	return nil
}

// deadLetter parks an unprocessable message. When the DLQ is unavailable the error is
// returned so that the message is not silently dropped.
func (h *SlipSubmissionHandler) deadLetter(ctx context.Context, key, value []byte, msg string, cause error) error {
	h.logger.Error(msg, "error", cause, "message_key", string(key))

	if h.producer != nil {
		reason := fmt.Sprintf("%s: %s", msg, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
			return nil
		}
	}

	return fmt.Errorf("unprocessable message: %w", cause)
}
