// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be rebound to a transaction with WithTx so that a binding,
// its entry update, the contract status and the outbox event commit together.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/platform/persistence"
)

// ContractRepository implements the contract.Repository interface for PostgreSQL
type ContractRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewContractRepository creates a new PostgreSQL contract repository
func NewContractRepository(logger *slog.Logger, db *persistence.PostgresDB) contract.Repository {
	return &ContractRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *ContractRepository) WithTx(tx pgx.Tx) contract.Repository {
	return &ContractRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new contract
func (r *ContractRepository) Create(ctx context.Context, c *contract.Contract) error {
	query := `
		INSERT INTO contracts (id, borrower_id, principal, rate, rate_basis, term_months, start_date, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.BorrowerID,
		c.Principal,
		c.Rate,
		c.RateBasis,
		c.TermMonths,
		c.StartDate,
		c.Status,
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create contract", "contract_id", c.ID.String(), "error", err)
		return fmt.Errorf("failed to create contract: %w", err)
	}

	return nil
}

// GetByID retrieves a contract by its ID
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	query := `
		SELECT id, borrower_id, principal, rate, rate_basis, term_months, start_date, status, version, created_at, updated_at
		FROM contracts
		WHERE id = $1
	`

	var c contract.Contract
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.BorrowerID,
		&c.Principal,
		&c.Rate,
		&c.RateBasis,
		&c.TermMonths,
		&c.StartDate,
		&c.Status,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contract.ErrContractNotFound{ContractID: id}
		}
		r.logger.Error("Failed to get contract", "contract_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	return &c, nil
}

// UpdateStatus moves the contract to status if it is still at expectedVersion.
// Returns ErrConcurrentModification otherwise.
func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status contract.Status, expectedVersion int) error {
	query := `
		UPDATE contracts
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	result, err := r.querier.Exec(ctx, query, status, id, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to update contract status",
			"contract_id", id.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to update contract status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return contract.ErrConcurrentModification{ContractID: id}
	}

	return nil
}
