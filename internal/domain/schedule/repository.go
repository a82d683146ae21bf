package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BindCommand is the compare-and-set payload that settles or part-settles one entry
type BindCommand struct {
	EntryID         uuid.UUID
	ContractID      uuid.UUID
	ExpectedVersion int
	NewStatus       Status
	PaidAmount      decimal.Decimal // New cumulative paid amount
	SlipRef         string
	PaidAt          *time.Time
}

// Repository manages schedule entry persistence. Binding state changes only through
// the compare-and-set operations below.
type Repository interface {
	CreateBatch(ctx context.Context, entries []*Entry) error

	// GetByContractID returns the contract's entries ordered by sequence
	GetByContractID(ctx context.Context, contractID uuid.UUID) ([]*Entry, error)

	// CompareAndBindEntry applies cmd only while the entry is still at
	// cmd.ExpectedVersion, still open and does not carry cmd.SlipRef.
	// Returns shared.ConflictError otherwise.
	CompareAndBindEntry(ctx context.Context, cmd BindCommand) error

	// MarkOverdue moves a PENDING or PARTIAL entry to OVERDUE under the same
	// version guard
	MarkOverdue(ctx context.Context, entryID uuid.UUID, expectedVersion int) error
	WithTx(tx pgx.Tx) Repository
}
