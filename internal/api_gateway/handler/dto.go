package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loan-slip-reconciler/internal/domain/aging"
	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/matching"
	"github.com/loan-slip-reconciler/internal/domain/money"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/verification"
	"github.com/loan-slip-reconciler/internal/reconciliation"
)

// ContractTermsRequest carries approved loan terms. Amounts and rates are decimal
// strings so that no value passes through binary floating point.
type ContractTermsRequest struct {
	BorrowerID string `json:"borrower_id" binding:"required"`
	Principal  string `json:"principal" binding:"required"`
	Rate       string `json:"rate" binding:"required"`
	RateBasis  string `json:"rate_basis" binding:"omitempty,oneof=MONTHLY ANNUAL"`
	TermMonths int    `json:"term_months" binding:"required"`
	StartDate  string `json:"start_date" binding:"required"` // YYYY-MM-DD
}

// toTerms converts the request; conversion failures are input errors
func (r ContractTermsRequest) toTerms() (contract.Terms, error) {
	principal, err := money.Parse(r.Principal)
	if err != nil {
		return contract.Terms{}, shared.InputError{Reason: "principal must be a decimal string", Err: err}
	}
	rate, err := money.Parse(r.Rate)
	if err != nil {
		return contract.Terms{}, shared.InputError{Reason: "rate must be a decimal string", Err: err}
	}
	startDate, err := money.ParseDate(r.StartDate)
	if err != nil {
		return contract.Terms{}, shared.InputError{Reason: "start_date must be YYYY-MM-DD", Err: err}
	}

	return contract.Terms{
		BorrowerID: r.BorrowerID,
		Principal:  principal,
		Rate:       rate,
		RateBasis:  contract.RateBasis(r.RateBasis),
		TermMonths: r.TermMonths,
		StartDate:  startDate,
	}, nil
}

// ScheduleEntryResponse represents one installment in API responses
type ScheduleEntryResponse struct {
	ID         string   `json:"id,omitempty"`
	Sequence   int      `json:"sequence"`
	DueDate    string   `json:"due_date"`
	Principal  string   `json:"principal"`
	Interest   string   `json:"interest"`
	TotalDue   string   `json:"total_due"`
	Status     string   `json:"status"`
	PaidAmount string   `json:"paid_amount"`
	PaidAt     string   `json:"paid_at,omitempty"`
	SlipRefs   []string `json:"slip_refs,omitempty"`
	Version    int      `json:"version,omitempty"`
}

// ScheduleResponse represents a full schedule with its totals
type ScheduleResponse struct {
	ContractID     string                  `json:"contract_id,omitempty"`
	Entries        []ScheduleEntryResponse `json:"entries"`
	TotalPrincipal string                  `json:"total_principal"`
	TotalInterest  string                  `json:"total_interest"`
	TotalDue       string                  `json:"total_due"`
}

// ContractResponse represents a contract in API responses
type ContractResponse struct {
	ID         string `json:"id"`
	BorrowerID string `json:"borrower_id"`
	Principal  string `json:"principal"`
	Rate       string `json:"rate"`
	RateBasis  string `json:"rate_basis"`
	TermMonths int    `json:"term_months"`
	StartDate  string `json:"start_date"`
	Status     string `json:"status"`
	Version    int    `json:"version"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// CreateContractResponse is returned when a contract and its schedule are created
type CreateContractResponse struct {
	Contract ContractResponse `json:"contract"`
	Schedule ScheduleResponse `json:"schedule"`
}

// AgingEntryResponse is the derived state of one installment
type AgingEntryResponse struct {
	EntryID         string `json:"entry_id"`
	Sequence        int    `json:"sequence"`
	PersistedStatus string `json:"persisted_status"`
	Status          string `json:"status"`
	DaysOverdue     int    `json:"days_overdue"`
	Bucket          string `json:"bucket"`
	RemainingDue    string `json:"remaining_due"`
}

// AgingResponse represents an aging summary in API responses
type AgingResponse struct {
	ContractID       string               `json:"contract_id"`
	ContractStatus   string               `json:"contract_status"`
	AsOf             string               `json:"as_of"`
	TotalOutstanding string               `json:"total_outstanding"`
	OverdueCount     int                  `json:"overdue_count"`
	MaxDaysOverdue   int                  `json:"max_days_overdue"`
	WorstBucket      string               `json:"worst_bucket"`
	NextDueDate      string               `json:"next_due_date,omitempty"`
	Entries          []AgingEntryResponse `json:"entries"`
}

// SlipRequest carries a base64 encoded slip image
type SlipRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
	MimeType    string `json:"mime_type" binding:"required"`
}

// MatchResultResponse represents a matching decision in API responses
type MatchResultResponse struct {
	SubmissionID string   `json:"submission_id"`
	Outcome      string   `json:"outcome"`
	EntryID      string   `json:"entry_id,omitempty"`
	Sequence     int      `json:"sequence,omitempty"`
	Confidence   string   `json:"confidence,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	CandidateIDs []string `json:"candidate_ids,omitempty"`
}

// VerificationResponse represents an audit record in API responses
type VerificationResponse struct {
	SubmissionID  string   `json:"submission_id"`
	ContractID    string   `json:"contract_id"`
	Status        string   `json:"status"`
	Outcome       string   `json:"outcome,omitempty"`
	EntryID       string   `json:"entry_id,omitempty"`
	Sequence      int      `json:"sequence,omitempty"`
	Confidence    string   `json:"confidence,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	CandidateIDs  []string `json:"candidate_ids,omitempty"`
	TransactionID string   `json:"transaction_id,omitempty"`
	Amount        string   `json:"amount,omitempty"`
	SlipTimestamp string   `json:"slip_timestamp,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
	CreatedAt     string   `json:"created_at"`
	ProcessedAt   string   `json:"processed_at,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapEntryToResponse(e *schedule.Entry) ScheduleEntryResponse {
	response := ScheduleEntryResponse{
		Sequence:   e.Sequence,
		DueDate:    e.DueDate.Format(money.DateLayout),
		Principal:  money.Format(e.Principal),
		Interest:   money.Format(e.Interest),
		TotalDue:   money.Format(e.TotalDue),
		Status:     string(e.Status),
		PaidAmount: money.Format(e.PaidAmount),
		SlipRefs:   e.SlipRefs,
		Version:    e.Version,
	}
	if e.ID != uuid.Nil {
		response.ID = e.ID.String()
	}
	if e.PaidAt != nil {
		response.PaidAt = e.PaidAt.Format(money.DateLayout)
	}
	return response
}

func mapScheduleToResponse(entries []*schedule.Entry) ScheduleResponse {
	response := ScheduleResponse{Entries: make([]ScheduleEntryResponse, 0, len(entries))}
	principals := make([]decimal.Decimal, 0, len(entries))
	interests := make([]decimal.Decimal, 0, len(entries))
	for _, e := range entries {
		response.Entries = append(response.Entries, mapEntryToResponse(e))
		principals = append(principals, e.Principal)
		interests = append(interests, e.Interest)
	}

	totalPrincipal := money.Sum(principals...)
	totalInterest := money.Sum(interests...)
	response.TotalPrincipal = money.Format(totalPrincipal)
	response.TotalInterest = money.Format(totalInterest)
	response.TotalDue = money.Format(totalPrincipal.Add(totalInterest))
	if len(entries) > 0 && entries[0].ContractID != uuid.Nil {
		response.ContractID = entries[0].ContractID.String()
	}
	return response
}

func mapContractToResponse(c *contract.Contract) ContractResponse {
	return ContractResponse{
		ID:         c.ID.String(),
		BorrowerID: c.BorrowerID,
		Principal:  money.Format(c.Principal),
		Rate:       c.Rate.String(),
		RateBasis:  string(c.RateBasis),
		TermMonths: c.TermMonths,
		StartDate:  c.StartDate.Format(money.DateLayout),
		Status:     string(c.Status),
		Version:    c.Version,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  c.UpdatedAt.Format(time.RFC3339),
	}
}

func mapAgingToResponse(summary *reconciliation.AgingSummary) AgingResponse {
	response := AgingResponse{
		ContractID:       summary.ContractID.String(),
		ContractStatus:   string(summary.ContractStatus),
		AsOf:             summary.Summary.AsOf.Format(money.DateLayout),
		TotalOutstanding: money.Format(summary.Summary.TotalOutstanding),
		OverdueCount:     summary.Summary.OverdueCount,
		MaxDaysOverdue:   summary.Summary.MaxDaysOverdue,
		WorstBucket:      string(summary.Summary.WorstBucket),
		Entries:          make([]AgingEntryResponse, 0, len(summary.Overlay)),
	}
	if summary.Summary.NextDueDate != nil {
		response.NextDueDate = summary.Summary.NextDueDate.Format(money.DateLayout)
	}
	for _, view := range summary.Overlay {
		response.Entries = append(response.Entries, mapAgingEntryToResponse(view))
	}
	return response
}

func mapAgingEntryToResponse(view aging.EntryAging) AgingEntryResponse {
	return AgingEntryResponse{
		EntryID:         view.EntryID.String(),
		Sequence:        view.Sequence,
		PersistedStatus: string(view.PersistedStatus),
		Status:          string(view.Status),
		DaysOverdue:     view.DaysOverdue,
		Bucket:          string(view.Bucket),
		RemainingDue:    money.Format(view.RemainingDue),
	}
}

func mapResultToResponse(submissionID string, result matching.Result) MatchResultResponse {
	response := MatchResultResponse{
		SubmissionID: submissionID,
		Outcome:      string(result.Outcome),
		Sequence:     result.Sequence,
		Confidence:   string(result.Confidence),
		Reason:       result.Reason,
	}
	if result.IsMatched() {
		response.EntryID = result.EntryID.String()
	}
	for _, id := range result.CandidateIDs {
		response.CandidateIDs = append(response.CandidateIDs, id.String())
	}
	return response
}

func mapRecordToResponse(r *verification.Record) VerificationResponse {
	response := VerificationResponse{
		SubmissionID:  r.SubmissionID.String(),
		ContractID:    r.ContractID.String(),
		Status:        string(r.Status),
		Outcome:       string(r.Outcome),
		Sequence:      r.Sequence,
		Confidence:    string(r.Confidence),
		Reason:        r.Reason,
		TransactionID: r.TransactionID,
		Amount:        r.Amount,
		FailureReason: string(r.FailureReason),
		ErrorMessage:  r.ErrorMessage,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.Outcome == matching.OutcomeMatched {
		response.EntryID = r.EntryID.String()
	}
	for _, id := range r.CandidateIDs {
		response.CandidateIDs = append(response.CandidateIDs, id.String())
	}
	if r.SlipTimestamp != nil {
		response.SlipTimestamp = r.SlipTimestamp.Format(time.RFC3339)
	}
	if r.ProcessedAt != nil {
		response.ProcessedAt = r.ProcessedAt.Format(time.RFC3339)
	}
	return response
}
