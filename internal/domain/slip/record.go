// Package slip holds the canonical payment slip produced by OCR extraction and the
// binding that records which schedule entry consumed it.
package slip

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Record is a normalised OCR extraction. It is never persisted on its own.
type Record struct {
	TransactionID string          `json:"transaction_id"` // Provider-assigned, preserved verbatim
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
	PayerRef      string          `json:"payer_ref"`
	PayeeRef      string          `json:"payee_ref"`
	Provider      string          `json:"provider,omitempty"`
}

// Binding records that a provider transaction settled (part of) a schedule entry
type Binding struct {
	TransactionID string
	ContractID    uuid.UUID
	EntryID       uuid.UUID
	Amount        decimal.Decimal
	BoundAt       time.Time
}

// NewBinding creates the binding of a slip to an entry
func NewBinding(record *Record, contractID, entryID uuid.UUID, boundAt time.Time) *Binding {
	return &Binding{
		TransactionID: record.TransactionID,
		ContractID:    contractID,
		EntryID:       entryID,
		Amount:        record.Amount,
		BoundAt:       boundAt,
	}
}

// BindingRepository persists bindings. Create returns shared.DuplicateSubmissionError
// when the transaction id was already bound anywhere.
type BindingRepository interface {
	Create(ctx context.Context, binding *Binding) error
	WithTx(tx pgx.Tx) BindingRepository
}
