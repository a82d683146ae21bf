package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/api_gateway/service"
	"github.com/loan-slip-reconciler/internal/domain/money"
)

// ContractHandler handles HTTP requests for contracts and their schedules
type ContractHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
	now                   func() time.Time
}

// NewContractHandler creates a new contract handler
func NewContractHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ContractHandler {
	return &ContractHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
		now:                   time.Now,
	}
}

// ComputeSchedule generates a schedule from terms without storing anything
func (h *ContractHandler) ComputeSchedule(c *gin.Context) {
	var req ContractTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	terms, err := req.toTerms()
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	entries, err := h.reconciliationService.ComputeSchedule(terms)
	if err != nil {
		h.logger.Info("Schedule computation rejected", "error", err)
		RespondWithDomainError(c, err)
		return
	}

	RespondOK(c, mapScheduleToResponse(entries))
}

// Create stores a contract together with its generated schedule
func (h *ContractHandler) Create(c *gin.Context) {
	var req ContractTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	terms, err := req.toTerms()
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	created, entries, err := h.reconciliationService.CreateContract(c.Request.Context(), terms)
	if err != nil {
		if !RespondWithDomainError(c, err) {
			h.logger.Error("Failed to create contract", "error", err)
		}
		return
	}

	RespondCreated(c, CreateContractResponse{
		Contract: mapContractToResponse(created),
		Schedule: mapScheduleToResponse(entries),
	})
}

// GetByID retrieves contract details by its ID
func (h *ContractHandler) GetByID(c *gin.Context) {
	id, ok := h.contractID(c)
	if !ok {
		return
	}

	found, err := h.reconciliationService.GetContract(c.Request.Context(), id)
	if err != nil {
		if !RespondWithDomainError(c, err) {
			h.logger.Error("Failed to get contract", "contract_id", id.String(), "error", err)
		}
		return
	}

	RespondOK(c, mapContractToResponse(found))
}

// GetSchedule retrieves the persisted schedule of a contract
func (h *ContractHandler) GetSchedule(c *gin.Context) {
	id, ok := h.contractID(c)
	if !ok {
		return
	}

	entries, err := h.reconciliationService.GetSchedule(c.Request.Context(), id)
	if err != nil {
		if !RespondWithDomainError(c, err) {
			h.logger.Error("Failed to get schedule", "contract_id", id.String(), "error", err)
		}
		return
	}

	RespondOK(c, mapScheduleToResponse(entries))
}

// GetAging classifies the schedule as of the as_of query date, today by default
func (h *ContractHandler) GetAging(c *gin.Context) {
	id, ok := h.contractID(c)
	if !ok {
		return
	}

	asOf := money.DateOnly(h.now())
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := money.ParseDate(raw)
		if err != nil {
			RespondBadRequest(c, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	summary, err := h.reconciliationService.GetAgingSummary(c.Request.Context(), id, asOf)
	if err != nil {
		if !RespondWithDomainError(c, err) {
			h.logger.Error("Failed to get aging summary", "contract_id", id.String(), "error", err)
		}
		return
	}

	RespondOK(c, mapAgingToResponse(summary))
}

func (h *ContractHandler) contractID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid contract ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid contract ID")
		return uuid.Nil, false
	}
	return id, true
}
