package contract

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines contract persistence operations
type Repository interface {
	Create(ctx context.Context, contract *Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contract, error)

	// UpdateStatus uses optimistic locking on the contract version
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, expectedVersion int) error
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	ContractID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for contract: " + e.ContractID.String()
}

// Is matches any ErrConcurrentModification when the target carries no ID
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.ContractID == uuid.Nil || t.ContractID == e.ContractID
}

// ErrContractNotFound indicates missing contract
type ErrContractNotFound struct {
	ContractID uuid.UUID
}

func (e ErrContractNotFound) Error() string {
	return "contract not found: " + e.ContractID.String()
}

// Is matches any ErrContractNotFound when the target carries no ID
func (e ErrContractNotFound) Is(target error) bool {
	t, ok := target.(ErrContractNotFound)
	if !ok {
		return false
	}
	return t.ContractID == uuid.Nil || t.ContractID == e.ContractID
}
