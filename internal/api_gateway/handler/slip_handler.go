package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/api_gateway/middleware"
	"github.com/loan-slip-reconciler/internal/api_gateway/service"
	"github.com/loan-slip-reconciler/internal/domain/shared"
)

// SlipHandler handles HTTP requests for slip verification
type SlipHandler struct {
	reconciliationService service.ReconciliationService
	submissionService     service.SubmissionService
	logger                *slog.Logger
}

// NewSlipHandler creates a new slip handler
func NewSlipHandler(
	logger *slog.Logger,
	reconciliationService service.ReconciliationService,
	submissionService service.SubmissionService,
) *SlipHandler {
	return &SlipHandler{
		reconciliationService: reconciliationService,
		submissionService:     submissionService,
		logger:                logger,
	}
}

// Verify runs slip verification inline and returns the matching decision
func (h *SlipHandler) Verify(c *gin.Context) {
	submission, ok := h.bindSubmission(c)
	if !ok {
		return
	}

	result, err := h.reconciliationService.VerifySlip(c.Request.Context(), submission)
	if err != nil {
		if !RespondWithDomainError(c, err) {
			h.logger.Error("Failed to verify slip",
				"submission_id", submission.SubmissionID.String(),
				"contract_id", submission.ContractID.String(),
				"error", err,
			)
		}
		return
	}

	RespondOK(c, mapResultToResponse(submission.SubmissionID.String(), result))
}

// Submit queues the slip for asynchronous verification
func (h *SlipHandler) Submit(c *gin.Context) {
	submission, ok := h.bindSubmission(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.reconciliationService.GetContract(ctx, submission.ContractID); err != nil {
		if !RespondWithDomainError(c, err) {
			h.logger.Error("Failed to look up contract", "contract_id", submission.ContractID.String(), "error", err)
		}
		return
	}

	record, err := h.submissionService.SubmitSlip(ctx, submission)
	if err != nil {
		if !RespondWithDomainError(c, err) {
			h.logger.Error("Failed to submit slip",
				"submission_id", submission.SubmissionID.String(),
				"error", err,
			)
		}
		return
	}

	RespondAccepted(c, gin.H{
		"submission_id": record.SubmissionID.String(),
		"status":        string(record.Status),
	})
}

// GetVerification retrieves the audit record of a submission, returns 404 if not found
func (h *SlipHandler) GetVerification(c *gin.Context) {
	idParam := c.Param("submission_id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid submission ID", "submission_id", idParam, "error", err)
		RespondBadRequest(c, "Invalid submission ID")
		return
	}

	record, err := h.submissionService.GetVerification(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get verification", "submission_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	if record == nil {
		RespondNotFound(c, "Verification not found")
		return
	}

	RespondOK(c, mapRecordToResponse(record))
}

// ListVerifications retrieves the paginated audit trail of a contract
func (h *SlipHandler) ListVerifications(c *gin.Context) {
	idParam := c.Param("id")
	contractID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid contract ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid contract ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	records, total, err := h.submissionService.GetVerificationsByContractID(
		c.Request.Context(),
		contractID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to list verifications", "contract_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	verifications := make([]VerificationResponse, 0, len(records))
	for _, record := range records {
		verifications = append(verifications, mapRecordToResponse(record))
	}

	RespondWithPaginatedData(c, http.StatusOK, verifications, pagination.Page, pagination.PerPage, int(total))
}

func (h *SlipHandler) bindSubmission(c *gin.Context) (*shared.SlipSubmission, bool) {
	idParam := c.Param("id")
	contractID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid contract ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid contract ID")
		return nil, false
	}

	var req SlipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return nil, false
	}

	return &shared.SlipSubmission{
		SubmissionID:  uuid.New(),
		ContractID:    contractID,
		ImageBase64:   req.ImageBase64,
		MimeType:      req.MimeType,
		CorrelationID: middleware.GetCorrelationID(c),
		Timestamp:     time.Now().UTC(),
	}, true
}
