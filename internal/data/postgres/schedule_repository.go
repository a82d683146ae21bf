package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/platform/persistence"
)

// scheduleEntryResource names schedule rows in conflict errors
const scheduleEntryResource = "schedule_entry"

// ScheduleRepository implements the schedule.Repository interface for PostgreSQL
type ScheduleRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewScheduleRepository creates a new PostgreSQL schedule repository
func NewScheduleRepository(logger *slog.Logger, db *persistence.PostgresDB) schedule.Repository {
	return &ScheduleRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *ScheduleRepository) WithTx(tx pgx.Tx) schedule.Repository {
	return &ScheduleRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateBatch inserts a generated schedule. Callers run it in the same transaction as
// the contract insert.
func (r *ScheduleRepository) CreateBatch(ctx context.Context, entries []*schedule.Entry) error {
	query := `
		INSERT INTO schedule_entries (id, contract_id, sequence, due_date, principal, interest, total_due, status, paid_amount, paid_at, slip_refs, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for _, e := range entries {
		slipRefs := e.SlipRefs
		if slipRefs == nil {
			slipRefs = []string{}
		}
		_, err := r.querier.Exec(ctx, query,
			e.ID,
			e.ContractID,
			e.Sequence,
			e.DueDate,
			e.Principal,
			e.Interest,
			e.TotalDue,
			e.Status,
			e.PaidAmount,
			e.PaidAt,
			slipRefs,
			e.Version,
			e.CreatedAt,
			e.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create schedule entry",
				"contract_id", e.ContractID.String(),
				"sequence", e.Sequence,
				"error", err)
			return fmt.Errorf("failed to create schedule entry %d: %w", e.Sequence, err)
		}
	}

	return nil
}

// GetByContractID returns the contract's schedule ordered by sequence
func (r *ScheduleRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) ([]*schedule.Entry, error) {
	query := `
		SELECT id, contract_id, sequence, due_date, principal, interest, total_due, status, paid_amount, paid_at, slip_refs, version, created_at, updated_at
		FROM schedule_entries
		WHERE contract_id = $1
		ORDER BY sequence ASC
	`

	rows, err := r.querier.Query(ctx, query, contractID)
	if err != nil {
		r.logger.Error("Failed to get schedule", "contract_id", contractID.String(), "error", err)
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	defer rows.Close()

	var entries []*schedule.Entry
	for rows.Next() {
		var e schedule.Entry
		err := rows.Scan(
			&e.ID,
			&e.ContractID,
			&e.Sequence,
			&e.DueDate,
			&e.Principal,
			&e.Interest,
			&e.TotalDue,
			&e.Status,
			&e.PaidAmount,
			&e.PaidAt,
			&e.SlipRefs,
			&e.Version,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan schedule entry", "contract_id", contractID.String(), "error", err)
			return nil, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over schedule entries", "contract_id", contractID.String(), "error", err)
		return nil, fmt.Errorf("error iterating over schedule entries: %w", err)
	}

	return entries, nil
}

// CompareAndBindEntry is the single-writer transition of an entry's binding state.
// The update only lands while the entry is still at the expected version, still open
// and not yet carrying the slip reference; otherwise shared.ConflictError is returned
// and the caller re-runs matching against fresh state.
func (r *ScheduleRepository) CompareAndBindEntry(ctx context.Context, cmd schedule.BindCommand) error {
	query := `
		UPDATE schedule_entries
		SET status = $1, paid_amount = $2, paid_at = $3, slip_refs = array_append(slip_refs, $4), version = version + 1, updated_at = NOW()
		WHERE id = $5 AND contract_id = $6 AND version = $7
			AND status IN ('PENDING', 'PARTIAL', 'OVERDUE')
			AND NOT ($4 = ANY(slip_refs))
	`

	result, err := r.querier.Exec(ctx, query,
		cmd.NewStatus,
		cmd.PaidAmount,
		cmd.PaidAt,
		cmd.SlipRef,
		cmd.EntryID,
		cmd.ContractID,
		cmd.ExpectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to bind schedule entry",
			"entry_id", cmd.EntryID.String(),
			"slip_ref", cmd.SlipRef,
			"error", err)
		return fmt.Errorf("failed to bind schedule entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ConflictError{Resource: scheduleEntryResource, ID: cmd.EntryID.String()}
	}

	return nil
}

// MarkOverdue persists the aging transition of a PENDING or PARTIAL entry
func (r *ScheduleRepository) MarkOverdue(ctx context.Context, entryID uuid.UUID, expectedVersion int) error {
	query := `
		UPDATE schedule_entries
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND status IN ('PENDING', 'PARTIAL')
	`

	result, err := r.querier.Exec(ctx, query, schedule.StatusOverdue, entryID, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to mark schedule entry overdue", "entry_id", entryID.String(), "error", err)
		return fmt.Errorf("failed to mark schedule entry overdue: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ConflictError{Resource: scheduleEntryResource, ID: entryID.String()}
	}

	return nil
}
