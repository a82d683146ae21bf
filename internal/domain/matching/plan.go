package matching

import (
	"github.com/loan-slip-reconciler/internal/domain/money"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/slip"
)

// PlanBinding derives the compare-and-set that applies a slip to the entry read at
// entry.Version. A slip covering the entry's SettlementDue makes it PAID with the paid
// amount recorded as the full total due, so a sub-cent tail never stays open; any
// smaller slip makes it PARTIAL. The paid date is the slip's civil date and is only
// set on PAID.
func PlanBinding(entry *schedule.Entry, record *slip.Record) schedule.BindCommand {
	cmd := schedule.BindCommand{
		EntryID:         entry.ID,
		ContractID:      entry.ContractID,
		ExpectedVersion: entry.Version,
		NewStatus:       schedule.StatusPartial,
		PaidAmount:      entry.PaidAmount.Add(record.Amount),
		SlipRef:         record.TransactionID,
	}

	if record.Amount.GreaterThanOrEqual(entry.SettlementDue()) {
		paidAt := money.DateOnly(record.Timestamp)
		cmd.NewStatus = schedule.StatusPaid
		cmd.PaidAmount = entry.TotalDue
		cmd.PaidAt = &paidAt
	}

	return cmd
}
