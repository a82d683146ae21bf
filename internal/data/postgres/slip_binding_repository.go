package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/slip"
	"github.com/loan-slip-reconciler/internal/platform/persistence"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint violation
const uniqueViolation = "23505"

// SlipBindingRepository implements the slip.BindingRepository interface for PostgreSQL
type SlipBindingRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSlipBindingRepository creates a new PostgreSQL slip binding repository
func NewSlipBindingRepository(logger *slog.Logger, db *persistence.PostgresDB) slip.BindingRepository {
	return &SlipBindingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *SlipBindingRepository) WithTx(tx pgx.Tx) slip.BindingRepository {
	return &SlipBindingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create records a binding. The transaction id is the primary key, so a slip already
// bound anywhere yields shared.DuplicateSubmissionError.
func (r *SlipBindingRepository) Create(ctx context.Context, binding *slip.Binding) error {
	query := `
		INSERT INTO slip_bindings (transaction_id, contract_id, entry_id, amount, bound_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.querier.Exec(ctx, query,
		binding.TransactionID,
		binding.ContractID,
		binding.EntryID,
		binding.Amount,
		binding.BoundAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.Warn("Slip already bound", "transaction_id", binding.TransactionID)
			return shared.DuplicateSubmissionError{TransactionID: binding.TransactionID}
		}
		r.logger.Error("Failed to create slip binding",
			"transaction_id", binding.TransactionID,
			"entry_id", binding.EntryID.String(),
			"error", err)
		return fmt.Errorf("failed to create slip binding: %w", err)
	}

	return nil
}
