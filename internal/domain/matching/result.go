// Package matching decides which schedule entry, if any, a verified payment slip settles.
//
// The engine is pure: it reads a contract's schedule and a slip record and returns a
// Result. Committing the decision is the caller's job and must go through the
// schedule repository's compare-and-set so that concurrent decisions cannot both bind.
package matching

import (
	"github.com/google/uuid"
)

// Outcome tags a Result
type Outcome string

const (
	OutcomeMatched   Outcome = "MATCHED"
	OutcomeNoMatch   Outcome = "NO_MATCH"
	OutcomeAmbiguous Outcome = "AMBIGUOUS"
)

// Confidence grades a Matched result
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"    // unique exact amount inside the window
	ConfidenceMedium  Confidence = "MEDIUM"  // exact amount inside the window, tie broken
	ConfidenceLow     Confidence = "LOW"     // exact amount on the oldest open entry, outside the window
	ConfidencePartial Confidence = "PARTIAL" // partial payment of the oldest open entry
)

// No-match reasons
const (
	ReasonDuplicateSubmission = "duplicate submission"
	ReasonNoEligibleEntry     = "no eligible schedule entry"
	ReasonLostRace            = "lost race"
)

// Result is the decision for one slip. Build it with Matched, NoMatch or Ambiguous.
type Result struct {
	Outcome      Outcome
	EntryID      uuid.UUID
	Sequence     int
	Confidence   Confidence
	Reason       string
	CandidateIDs []uuid.UUID
}

// Matched binds the slip to one entry
func Matched(entryID uuid.UUID, sequence int, confidence Confidence) Result {
	return Result{Outcome: OutcomeMatched, EntryID: entryID, Sequence: sequence, Confidence: confidence}
}

// NoMatch leaves the slip unbound for manual review
func NoMatch(reason string) Result {
	return Result{Outcome: OutcomeNoMatch, Reason: reason}
}

// Ambiguous reports several entries the slip could settle with no safe pick
func Ambiguous(candidateIDs []uuid.UUID) Result {
	ids := make([]uuid.UUID, len(candidateIDs))
	copy(ids, candidateIDs)
	return Result{Outcome: OutcomeAmbiguous, CandidateIDs: ids}
}

// IsMatched reports whether the result binds an entry
func (r Result) IsMatched() bool {
	return r.Outcome == OutcomeMatched
}
