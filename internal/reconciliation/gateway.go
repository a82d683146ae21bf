// Package reconciliation is the caller-facing surface of the engine. It composes the
// pure schedule, aging and matching logic with storage, the slip adapter and the
// audit trail, and it owns the bounded retry around compare-and-set binding.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loan-slip-reconciler/internal/config"
	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/matching"
	"github.com/loan-slip-reconciler/internal/domain/outbox"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/slip"
)

// TxRunner runs fn inside a database transaction, rolling back when it fails
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// SlipValidator rejects malformed slip images before any provider call
type SlipValidator interface {
	Validate(imageBase64, mimeType string) error
}

// SlipExtractor turns a slip image into a canonical record
type SlipExtractor interface {
	Extract(ctx context.Context, imageBase64 string) (*slip.Record, error)
}

// Dependencies groups the collaborators of a Gateway
type Dependencies struct {
	TxRunner  TxRunner
	Contracts contract.Repository
	Schedules schedule.Repository
	Bindings  slip.BindingRepository
	Outbox    outbox.Repository
	Validator SlipValidator
	Extractor SlipExtractor
	Audit     *AuditRecorder
}

// Gateway implements the reconciliation operations
type Gateway struct {
	txRunner  TxRunner
	contracts contract.Repository
	schedules schedule.Repository
	bindings  slip.BindingRepository
	outbox    outbox.Repository
	validator SlipValidator
	extractor SlipExtractor
	audit     *AuditRecorder
	engine    *matching.Engine

	maxBindRetries       int
	defaultThresholdDays int
	readBackoff          time.Duration

	now    func() time.Time
	logger *slog.Logger
}

// NewGateway creates a gateway with the matching parameters from cfg
func NewGateway(deps Dependencies, cfg *config.MatchingConfig, logger *slog.Logger) *Gateway {
	retries := cfg.MaxBindRetries
	if retries < 1 {
		retries = 1
	}
	return &Gateway{
		txRunner:             deps.TxRunner,
		contracts:            deps.Contracts,
		schedules:            deps.Schedules,
		bindings:             deps.Bindings,
		outbox:               deps.Outbox,
		validator:            deps.Validator,
		extractor:            deps.Extractor,
		audit:                deps.Audit,
		engine:               matching.NewEngine(matching.Config{WindowDays: cfg.WindowDays}),
		maxBindRetries:       retries,
		defaultThresholdDays: cfg.DefaultThresholdDays,
		readBackoff:          defaultReadBackoff,
		now:                  func() time.Time { return time.Now().UTC() },
		logger:               logger,
	}
}

// ComputeSchedule previews the schedule of a set of terms without persisting anything
func (g *Gateway) ComputeSchedule(terms contract.Terms) ([]*schedule.Entry, error) {
	if terms.RateBasis != "" && terms.RateBasis != contract.RateBasisMonthly && terms.RateBasis != contract.RateBasisAnnual {
		return nil, shared.InputError{Reason: contract.ErrInvalidRateBasis.Error(), Err: contract.ErrInvalidRateBasis}
	}
	return generate(terms)
}

// CreateContract persists a new ACTIVE contract together with its generated schedule
func (g *Gateway) CreateContract(ctx context.Context, terms contract.Terms) (*contract.Contract, []*schedule.Entry, error) {
	c, err := contract.NewContract(terms)
	if err != nil {
		return nil, nil, shared.InputError{Reason: err.Error(), Err: err}
	}

	entries, err := generate(c.Terms())
	if err != nil {
		return nil, nil, err
	}
	schedule.Assign(c.ID, entries, c.CreatedAt)

	err = g.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := g.contracts.WithTx(tx).Create(ctx, c); err != nil {
			return err
		}
		return g.schedules.WithTx(tx).CreateBatch(ctx, entries)
	})
	if err != nil {
		g.logger.Error("Failed to persist contract", "contract_id", c.ID.String(), "error", err)
		return nil, nil, fmt.Errorf("failed to create contract: %w", err)
	}

	g.logger.Info("Contract created",
		"contract_id", c.ID.String(),
		"borrower_id", c.BorrowerID,
		"term_months", c.TermMonths,
	)
	return c, entries, nil
}

// GetContract returns a contract or contract.ErrContractNotFound
func (g *Gateway) GetContract(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	return g.loadContract(ctx, id)
}

// GetSchedule returns the persisted schedule of an existing contract
func (g *Gateway) GetSchedule(ctx context.Context, contractID uuid.UUID) ([]*schedule.Entry, error) {
	if _, err := g.loadContract(ctx, contractID); err != nil {
		return nil, err
	}
	return g.loadSchedule(ctx, contractID)
}

func generate(terms contract.Terms) ([]*schedule.Entry, error) {
	entries, err := schedule.GenerateForRate(terms.Principal, terms.InterestRate(), terms.TermMonths, terms.StartDate)
	if err != nil {
		var termErr schedule.InvalidTermError
		var principalErr schedule.InvalidPrincipalError
		if errors.As(err, &termErr) || errors.As(err, &principalErr) {
			return nil, shared.InputError{Reason: err.Error(), Err: err}
		}
		return nil, err
	}
	return entries, nil
}
