package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the settlement state of one installment
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
	StatusOverdue Status = "OVERDUE"
)

// IsOpen reports whether an entry in this status can still receive payments
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusPartial || s == StatusOverdue
}

// Entry is one installment obligation of a contract
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	ContractID uuid.UUID       `json:"contract_id"`
	Sequence   int             `json:"sequence"`
	DueDate    time.Time       `json:"due_date"`
	Principal  decimal.Decimal `json:"principal"`
	Interest   decimal.Decimal `json:"interest"`
	TotalDue   decimal.Decimal `json:"total_due"`
	Status     Status          `json:"status"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	SlipRefs   []string        `json:"slip_refs,omitempty"` // Provider transaction ids bound here
	Version    int             `json:"version"`             // For optimistic locking
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// RemainingDue is what is still owed on the entry
func (e *Entry) RemainingDue() decimal.Decimal {
	return e.TotalDue.Sub(e.PaidAmount)
}

// SettlementDue is the remaining due rounded up to the minor unit: the smallest slip
// amount that settles the entry. Only a final installment carrying sub-cent interest
// differs from RemainingDue.
func (e *Entry) SettlementDue() decimal.Decimal {
	return e.RemainingDue().RoundCeil(2)
}

// IsOpen reports whether the entry is a matching candidate
func (e *Entry) IsOpen() bool {
	return e.Status.IsOpen()
}

// HasSlipRef reports whether the provider transaction id is already bound to the entry
func (e *Entry) HasSlipRef(transactionID string) bool {
	for _, ref := range e.SlipRefs {
		if ref == transactionID {
			return true
		}
	}
	return false
}

// AllPaid reports whether every entry of a non-empty schedule is settled
func AllPaid(entries []*Entry) bool {
	if len(entries) == 0 {
		return false
	}
	for _, e := range entries {
		if e.Status != StatusPaid {
			return false
		}
	}
	return true
}

// FindByID returns the entry with the given id, or nil
func FindByID(entries []*Entry, id uuid.UUID) *Entry {
	for _, e := range entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}
