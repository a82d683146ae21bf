package matching

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/loan-slip-reconciler/internal/domain/money"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/slip"
)

// Config holds the engine's operational parameters
type Config struct {
	// WindowDays is how many calendar days before or after a due date a slip still
	// counts as paying that installment on time
	WindowDays int
}

// Engine applies the matching policy
type Engine struct {
	windowDays int
}

// NewEngine creates a matching engine
func NewEngine(cfg Config) *Engine {
	window := cfg.WindowDays
	if window < 0 {
		window = 0
	}
	return &Engine{windowDays: window}
}

// Match selects the entry a slip settles. entries is the contract's full schedule,
// settled entries included, so that a transaction id bound anywhere is caught.
// Amounts are compared with each entry's SettlementDue.
//
// Rules, first satisfied wins:
//
//	1.  the transaction id is already bound on the contract: NoMatch(duplicate submission)
//	2.  exactly one open entry is due the amount and falls due within the window of
//	    the slip date: Matched(HIGH)
//	3.  several such entries: the closest due date wins, then the lowest sequence: Matched(MEDIUM)
//	3b. exact amount only outside the window: Matched(LOW) when the oldest open entry
//	    is one of them, otherwise Ambiguous
//	4.  amount below the oldest open entry's due: Matched(PARTIAL) on that entry
//	5.  anything else: NoMatch(no eligible schedule entry)
func (e *Engine) Match(record *slip.Record, entries []*schedule.Entry) Result {
	for _, entry := range entries {
		if entry.HasSlipRef(record.TransactionID) {
			return NoMatch(ReasonDuplicateSubmission)
		}
	}

	open := openCandidates(entries)
	if len(open) == 0 || !record.Amount.IsPositive() {
		return NoMatch(ReasonNoEligibleEntry)
	}

	slipDate := money.DateOnly(record.Timestamp)

	var exact, inWindow []*schedule.Entry
	for _, entry := range open {
		if !entry.SettlementDue().Equal(record.Amount) {
			continue
		}
		exact = append(exact, entry)
		if money.AbsDaysBetween(entry.DueDate, slipDate) <= e.windowDays {
			inWindow = append(inWindow, entry)
		}
	}

	switch {
	case len(inWindow) == 1:
		return Matched(inWindow[0].ID, inWindow[0].Sequence, ConfidenceHigh)
	case len(inWindow) > 1:
		best := closestDue(inWindow, slipDate)
		return Matched(best.ID, best.Sequence, ConfidenceMedium)
	}

	oldest := open[0]
	if len(exact) > 0 {
		if exact[0] == oldest {
			return Matched(oldest.ID, oldest.Sequence, ConfidenceLow)
		}
		ids := make([]uuid.UUID, 0, len(exact))
		for _, entry := range exact {
			ids = append(ids, entry.ID)
		}
		return Ambiguous(ids)
	}

	if record.Amount.LessThan(oldest.SettlementDue()) {
		return Matched(oldest.ID, oldest.Sequence, ConfidencePartial)
	}

	return NoMatch(ReasonNoEligibleEntry)
}

// openCandidates returns the open entries ordered by due date, then sequence
func openCandidates(entries []*schedule.Entry) []*schedule.Entry {
	open := make([]*schedule.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsOpen() {
			open = append(open, entry)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if !open[i].DueDate.Equal(open[j].DueDate) {
			return open[i].DueDate.Before(open[j].DueDate)
		}
		return open[i].Sequence < open[j].Sequence
	})
	return open
}

// closestDue picks the entry due nearest to the slip date; ties go to the lowest sequence
func closestDue(entries []*schedule.Entry, slipDate time.Time) *schedule.Entry {
	best := entries[0]
	bestDistance := money.AbsDaysBetween(best.DueDate, slipDate)
	for _, entry := range entries[1:] {
		distance := money.AbsDaysBetween(entry.DueDate, slipDate)
		if distance < bestDistance || (distance == bestDistance && entry.Sequence < best.Sequence) {
			best, bestDistance = entry, distance
		}
	}
	return best
}
