// Package aging derives overdue state and aging buckets from a contract's schedule.
// It never mutates the schedule; persisting OVERDUE transitions is left to the caller.
package aging

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loan-slip-reconciler/internal/domain/money"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
)

// Bucket is a reporting band of days overdue
type Bucket string

const (
	BucketCurrent Bucket = "CURRENT"
	Bucket1To30   Bucket = "1-30"
	Bucket31To60  Bucket = "31-60"
	Bucket61To90  Bucket = "61-90"
	Bucket90Plus  Bucket = "90+"
)

// BucketFor maps days overdue onto its reporting band
func BucketFor(daysOverdue int) Bucket {
	switch {
	case daysOverdue <= 0:
		return BucketCurrent
	case daysOverdue <= 30:
		return Bucket1To30
	case daysOverdue <= 60:
		return Bucket31To60
	case daysOverdue <= 90:
		return Bucket61To90
	default:
		return Bucket90Plus
	}
}

// EntryAging is the derived view of one schedule entry at a point in time
type EntryAging struct {
	EntryID         uuid.UUID       `json:"entry_id"`
	Sequence        int             `json:"sequence"`
	PersistedStatus schedule.Status `json:"persisted_status"`
	Status          schedule.Status `json:"status"`
	DaysOverdue     int             `json:"days_overdue"`
	Bucket          Bucket          `json:"bucket"`
	RemainingDue    decimal.Decimal `json:"remaining_due"`
}

// NeedsOverduePersist reports whether the persisted status lags behind the overlay
func (a EntryAging) NeedsOverduePersist() bool {
	return a.Status == schedule.StatusOverdue && a.PersistedStatus != schedule.StatusOverdue
}

// Summary aggregates a contract's aging state
type Summary struct {
	AsOf             time.Time       `json:"as_of"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	OverdueCount     int             `json:"overdue_count"`
	MaxDaysOverdue   int             `json:"max_days_overdue"`
	WorstBucket      Bucket          `json:"worst_bucket"`
	NextDueDate      *time.Time      `json:"next_due_date,omitempty"`
}

// Report is the output of Classify
type Report struct {
	Overlay []EntryAging `json:"overlay"`
	Summary Summary      `json:"summary"`
}

// Classify computes the status overlay and summary of a schedule as of a civil date.
//
// An unsettled entry whose due date is strictly before asOf is OVERDUE by the number of
// calendar days between the two. A persisted OVERDUE entry that is not yet due at asOf
// (an earlier asOf than the one that flagged it) is shown as PENDING, or PARTIAL when
// something was paid, so the overlay depends only on asOf and the amounts.
func Classify(entries []*schedule.Entry, asOf time.Time) Report {
	asOf = money.DateOnly(asOf)

	report := Report{
		Overlay: make([]EntryAging, 0, len(entries)),
		Summary: Summary{
			AsOf:             asOf,
			TotalOutstanding: decimal.Zero,
			WorstBucket:      BucketCurrent,
		},
	}

	for _, e := range entries {
		view := EntryAging{
			EntryID:         e.ID,
			Sequence:        e.Sequence,
			PersistedStatus: e.Status,
			Status:          e.Status,
			Bucket:          BucketCurrent,
			RemainingDue:    e.RemainingDue(),
		}

		if e.IsOpen() {
			report.Summary.TotalOutstanding = report.Summary.TotalOutstanding.Add(view.RemainingDue)

			due := money.DateOnly(e.DueDate)
			if due.Before(asOf) {
				view.Status = schedule.StatusOverdue
				view.DaysOverdue = money.DaysBetween(due, asOf)
				view.Bucket = BucketFor(view.DaysOverdue)

				report.Summary.OverdueCount++
				if view.DaysOverdue > report.Summary.MaxDaysOverdue {
					report.Summary.MaxDaysOverdue = view.DaysOverdue
				}
			} else {
				view.Status = notYetDueStatus(e)
				if report.Summary.NextDueDate == nil || due.Before(*report.Summary.NextDueDate) {
					next := due
					report.Summary.NextDueDate = &next
				}
			}
		}

		report.Overlay = append(report.Overlay, view)
	}

	report.Summary.WorstBucket = BucketFor(report.Summary.MaxDaysOverdue)
	return report
}

func notYetDueStatus(e *schedule.Entry) schedule.Status {
	if e.Status != schedule.StatusOverdue {
		return e.Status
	}
	if e.PaidAmount.IsPositive() {
		return schedule.StatusPartial
	}
	return schedule.StatusPending
}

// IsDefaulted reports whether the contract crossed the default threshold
func (s Summary) IsDefaulted(thresholdDays int) bool {
	return thresholdDays > 0 && s.MaxDaysOverdue >= thresholdDays
}
