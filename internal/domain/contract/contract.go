package contract

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loan-slip-reconciler/internal/domain/money"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
)

// Common errors
var (
	ErrEmptyBorrowerID   = errors.New("borrower id cannot be empty")
	ErrInvalidRateBasis  = errors.New("rate basis must be MONTHLY or ANNUAL")
	ErrInvalidTransition = errors.New("invalid contract status transition")
)

// Status is the lifecycle state of a contract
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusClosed    Status = "CLOSED"
	StatusDefaulted Status = "DEFAULTED"
)

// RateBasis tells whether the contract rate is quoted per month or per year
type RateBasis string

const (
	RateBasisMonthly RateBasis = "MONTHLY"
	RateBasisAnnual  RateBasis = "ANNUAL"
)

// Terms are the inputs a schedule is generated from
type Terms struct {
	BorrowerID string          `json:"borrower_id"`
	Principal  decimal.Decimal `json:"principal"`
	Rate       decimal.Decimal `json:"rate"`
	RateBasis  RateBasis       `json:"rate_basis"`
	TermMonths int             `json:"term_months"`
	StartDate  time.Time       `json:"start_date"`
}

// InterestRate returns the quoted rate with the period it applies to
func (t Terms) InterestRate() schedule.Rate {
	if t.RateBasis == RateBasisAnnual {
		return schedule.AnnualRate(t.Rate)
	}
	return schedule.MonthlyRate(t.Rate)
}

// Contract is an approved installment loan
type Contract struct {
	ID         uuid.UUID       `json:"id"`
	BorrowerID string          `json:"borrower_id"`
	Principal  decimal.Decimal `json:"principal"`
	Rate       decimal.Decimal `json:"rate"`
	RateBasis  RateBasis       `json:"rate_basis"`
	TermMonths int             `json:"term_months"`
	StartDate  time.Time       `json:"start_date"`
	Status     Status          `json:"status"`
	Version    int             `json:"version"` // For optimistic locking
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewContract creates an ACTIVE contract from approved terms. Numeric validation of
// the terms belongs to schedule generation.
func NewContract(terms Terms) (*Contract, error) {
	borrowerID := strings.TrimSpace(terms.BorrowerID)
	if borrowerID == "" {
		return nil, ErrEmptyBorrowerID
	}
	basis := terms.RateBasis
	if basis == "" {
		basis = RateBasisMonthly
	}
	if basis != RateBasisMonthly && basis != RateBasisAnnual {
		return nil, ErrInvalidRateBasis
	}

	now := time.Now().UTC()
	return &Contract{
		ID:         uuid.New(),
		BorrowerID: borrowerID,
		Principal:  terms.Principal,
		Rate:       terms.Rate,
		RateBasis:  basis,
		TermMonths: terms.TermMonths,
		StartDate:  money.DateOnly(terms.StartDate),
		Status:     StatusActive,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Terms returns the contract's generation inputs
func (c *Contract) Terms() Terms {
	return Terms{
		BorrowerID: c.BorrowerID,
		Principal:  c.Principal,
		Rate:       c.Rate,
		RateBasis:  c.RateBasis,
		TermMonths: c.TermMonths,
		StartDate:  c.StartDate,
	}
}

// InterestRate returns the contract's quoted rate
func (c *Contract) InterestRate() schedule.Rate {
	return c.Terms().InterestRate()
}

// CanTransitionTo reports whether schedule state may move the contract to next.
// CLOSED is terminal; a DEFAULTED contract can still be paid off.
func (c *Contract) CanTransitionTo(next Status) bool {
	switch c.Status {
	case StatusActive:
		return next == StatusClosed || next == StatusDefaulted
	case StatusDefaulted:
		return next == StatusClosed
	default:
		return false
	}
}
