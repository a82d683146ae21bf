package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/matching"
	"github.com/loan-slip-reconciler/internal/domain/outbox"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/slip"
	"github.com/loan-slip-reconciler/internal/domain/verification"
	"github.com/loan-slip-reconciler/internal/slipadapter"
)

// VerifySlip validates and extracts a slip image, matches it against the contract's
// schedule and commits a Matched decision through compare-and-set.
//
// It ends in exactly one of: a bound Matched result, an unbound NoMatch or Ambiguous
// result, or an error (shared.InputError, shared.ProviderError,
// contract.ErrContractNotFound or a storage error). A bind that keeps losing to
// concurrent writers is reported as NoMatch "lost race".
func (g *Gateway) VerifySlip(ctx context.Context, submission *shared.SlipSubmission) (matching.Result, error) {
	logger := g.logger.With(
		"submission_id", submission.SubmissionID.String(),
		"contract_id", submission.ContractID.String(),
	)
	if submission.CorrelationID != "" {
		logger = logger.With("correlation_id", submission.CorrelationID)
	}

	record := verification.NewRecord(submission)
	record.Status = shared.VerificationStatusProcessing

	c, err := g.loadContract(ctx, submission.ContractID)
	if err != nil {
		if errors.Is(err, contract.ErrContractNotFound{}) {
			logger.Warn("Slip submitted for unknown contract")
			g.fail(ctx, record, shared.FailureReasonContractNotFound, err)
			return matching.Result{}, err
		}
		return matching.Result{}, err
	}

	if err := g.validator.Validate(submission.ImageBase64, submission.MimeType); err != nil {
		inputErr := shared.InputError{Reason: err.Error(), Err: err}
		var vErr slipadapter.ValidationError
		if errors.As(err, &vErr) {
			inputErr.Reason = vErr.Reason
		}
		logger.Info("Slip image rejected", "reason", inputErr.Reason)
		g.fail(ctx, record, shared.FailureReasonInvalidInput, inputErr)
		return matching.Result{}, inputErr
	}

	extracted, err := g.extractor.Extract(ctx, submission.ImageBase64)
	if err != nil {
		providerErr := shared.ProviderError{Reason: err.Error(), Err: err}
		var extErr slipadapter.ExtractionError
		if errors.As(err, &extErr) {
			providerErr.Reason = extErr.Reason
		}
		logger.Warn("Slip extraction failed", "reason", providerErr.Reason, "error", err)
		g.fail(ctx, record, shared.FailureReasonVerificationUnavailable, providerErr)
		return matching.Result{}, providerErr
	}
	logger = logger.With("transaction_id", extracted.TransactionID)

	result, bound, err := g.matchAndBind(ctx, logger, c, extracted, record)
	if err != nil {
		g.fail(ctx, record, shared.FailureReasonUnknownError, err)
		return matching.Result{}, err
	}

	if !bound {
		record.Complete(result, extracted, g.now())
		g.audit.Record(ctx, record)
	}

	logger.Info("Slip verified",
		"outcome", string(result.Outcome),
		"entry_id", result.EntryID.String(),
		"confidence", string(result.Confidence),
		"reason", result.Reason,
	)
	return result, nil
}

// matchAndBind runs match then commit, re-reading the schedule after every lost
// compare-and-set. bound is true when a Matched result was committed, in which case the
// audit record travels through the outbox.
func (g *Gateway) matchAndBind(
	ctx context.Context,
	logger *slog.Logger,
	c *contract.Contract,
	extracted *slip.Record,
	record *verification.Record,
) (matching.Result, bool, error) {
	for attempt := 1; attempt <= g.maxBindRetries; attempt++ {
		if attempt > 1 {
			refreshed, err := g.loadContract(ctx, c.ID)
			if err != nil {
				return matching.Result{}, false, err
			}
			c = refreshed
		}
		entries, err := g.loadSchedule(ctx, c.ID)
		if err != nil {
			return matching.Result{}, false, err
		}

		result := g.engine.Match(extracted, entries)
		if !result.IsMatched() {
			return result, false, nil
		}

		entry := schedule.FindByID(entries, result.EntryID)
		if entry == nil {
			return matching.Result{}, false, fmt.Errorf("matched entry %s missing from schedule", result.EntryID)
		}

		err = g.commitBinding(ctx, c, entry, extracted, result, record)
		switch {
		case err == nil:
			return result, true, nil
		case errors.Is(err, shared.DuplicateSubmissionError{}):
			logger.Info("Slip already bound by a concurrent submission")
			return matching.NoMatch(matching.ReasonDuplicateSubmission), false, nil
		case errors.Is(err, shared.ConflictError{}), errors.Is(err, contract.ErrConcurrentModification{}):
			logger.Warn("Lost bind race, re-evaluating",
				"entry_id", entry.ID.String(),
				"attempt", attempt,
				"max_attempts", g.maxBindRetries,
			)
			continue
		default:
			logger.Error("Failed to commit binding", "entry_id", entry.ID.String(), "error", err)
			return matching.Result{}, false, err
		}
	}

	logger.Warn("Giving up after repeated bind conflicts", "attempts", g.maxBindRetries)
	return matching.NoMatch(matching.ReasonLostRace), false, nil
}

// commitBinding inserts the slip binding, applies the entry compare-and-set, closes a
// contract whose last open entry just settled and enqueues the audit record, all in
// one transaction.
func (g *Gateway) commitBinding(
	ctx context.Context,
	c *contract.Contract,
	entry *schedule.Entry,
	extracted *slip.Record,
	result matching.Result,
	record *verification.Record,
) error {
	cmd := matching.PlanBinding(entry, extracted)
	now := g.now()

	return g.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := g.bindings.WithTx(tx).Create(ctx, slip.NewBinding(extracted, c.ID, entry.ID, now)); err != nil {
			return err
		}

		schedulesTx := g.schedules.WithTx(tx)
		if err := schedulesTx.CompareAndBindEntry(ctx, cmd); err != nil {
			return err
		}

		if cmd.NewStatus == schedule.StatusPaid && c.CanTransitionTo(contract.StatusClosed) {
			current, err := schedulesTx.GetByContractID(ctx, c.ID)
			if err != nil {
				return err
			}
			if schedule.AllPaid(current) {
				if err := g.contracts.WithTx(tx).UpdateStatus(ctx, c.ID, contract.StatusClosed, c.Version); err != nil {
					return err
				}
				g.logger.Info("Contract settled", "contract_id", c.ID.String())
			}
		}

		record.Complete(result, extracted, now)
		msg, err := outbox.NewMessage(record)
		if err != nil {
			return fmt.Errorf("failed to create outbox message payload: %w", err)
		}
		return g.outbox.WithTx(tx).Create(ctx, msg)
	})
}

func (g *Gateway) fail(ctx context.Context, record *verification.Record, reason shared.FailureReason, err error) {
	record.Fail(reason, err.Error(), g.now())
	g.audit.Record(ctx, record)
}
