package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/domain/aging"
	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/shared"
)

// AgingSummary is a contract's aging report together with its resulting status
type AgingSummary struct {
	ContractID     uuid.UUID       `json:"contract_id"`
	ContractStatus contract.Status `json:"contract_status"`
	aging.Report
}

// GetAgingSummary classifies the contract's schedule as of asOf. Entries the overlay
// shows as OVERDUE are persisted as such, and the contract moves to DEFAULTED once its
// worst entry is past the configured threshold. A fully settled contract that is not
// yet CLOSED is closed here.
func (g *Gateway) GetAgingSummary(ctx context.Context, contractID uuid.UUID, asOf time.Time) (*AgingSummary, error) {
	c, err := g.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	entries, err := g.loadSchedule(ctx, contractID)
	if err != nil {
		return nil, err
	}

	report := aging.Classify(entries, asOf)

	for _, view := range report.Overlay {
		if !view.NeedsOverduePersist() {
			continue
		}
		entry := schedule.FindByID(entries, view.EntryID)
		if entry == nil {
			continue
		}
		if err := g.schedules.MarkOverdue(ctx, entry.ID, entry.Version); err != nil {
			if errors.Is(err, shared.ConflictError{}) {
				g.logger.Warn("Skipped overdue transition, entry changed concurrently",
					"contract_id", contractID.String(),
					"entry_id", entry.ID.String(),
				)
				continue
			}
			return nil, err
		}
	}

	var next contract.Status
	switch {
	case schedule.AllPaid(entries) && c.CanTransitionTo(contract.StatusClosed):
		next = contract.StatusClosed
	case report.Summary.IsDefaulted(g.defaultThresholdDays) && c.Status == contract.StatusActive:
		next = contract.StatusDefaulted
	}

	if next != "" {
		err := g.contracts.UpdateStatus(ctx, c.ID, next, c.Version)
		switch {
		case err == nil:
			g.logger.Info("Contract status changed",
				"contract_id", c.ID.String(),
				"from", string(c.Status),
				"to", string(next),
				"max_days_overdue", report.Summary.MaxDaysOverdue,
			)
			c.Status = next
			c.Version++
		case errors.Is(err, contract.ErrConcurrentModification{}):
			g.logger.Warn("Skipped contract status change, contract changed concurrently", "contract_id", c.ID.String())
		default:
			return nil, err
		}
	}

	return &AgingSummary{
		ContractID:     c.ID,
		ContractStatus: c.Status,
		Report:         report,
	}, nil
}
