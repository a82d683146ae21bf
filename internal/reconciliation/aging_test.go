package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loan-slip-reconciler/internal/domain/aging"
	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/shared"
)

func TestGateway_GetAgingSummary_PersistsOverdue(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)

	// Feb 29 and Mar 31 have passed by Apr 15
	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.schedules.On("MarkOverdue", ctx, entries[0].ID, 1).Return(nil).Once()
	tg.schedules.On("MarkOverdue", ctx, entries[1].ID, 1).Return(nil).Once()

	summary, err := tg.gateway.GetAgingSummary(ctx, c.ID, date(2024, 4, 15))
	require.NoError(t, err)

	assert.Equal(t, contract.StatusActive, summary.ContractStatus)
	assert.Equal(t, 2, summary.Summary.OverdueCount)
	assert.Equal(t, 46, summary.Summary.MaxDaysOverdue)
	assert.Equal(t, aging.Bucket31To60, summary.Summary.WorstBucket)
	assert.Equal(t, schedule.StatusOverdue, summary.Overlay[0].Status)
	assert.Equal(t, schedule.StatusPending, summary.Overlay[2].Status)
	tg.assertExpectations(t)
}

func TestGateway_GetAgingSummary_SkipsConflicts(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.schedules.On("MarkOverdue", ctx, entries[0].ID, 1).
		Return(shared.ConflictError{Resource: "schedule_entry", ID: entries[0].ID.String()}).Once()

	summary, err := tg.gateway.GetAgingSummary(ctx, c.ID, date(2024, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Summary.OverdueCount)
	tg.assertExpectations(t)
}

func TestGateway_GetAgingSummary_StorageErrorOnPersist(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)
	dbErr := errors.New("disk full")

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.schedules.On("MarkOverdue", ctx, entries[0].ID, 1).Return(dbErr).Once()

	summary, err := tg.gateway.GetAgingSummary(ctx, c.ID, date(2024, 3, 10))
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, dbErr)
}

func TestGateway_GetAgingSummary_Defaults(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)
	for _, e := range entries[:4] {
		e.Status = schedule.StatusOverdue
		e.Version = 2
	}

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.contracts.On("UpdateStatus", ctx, c.ID, contract.StatusDefaulted, 1).Return(nil).Once()

	// Feb 29 + 92 days
	summary, err := tg.gateway.GetAgingSummary(ctx, c.ID, date(2024, 5, 31))
	require.NoError(t, err)

	assert.Equal(t, contract.StatusDefaulted, summary.ContractStatus)
	assert.Equal(t, 92, summary.Summary.MaxDaysOverdue)
	assert.Equal(t, aging.Bucket90Plus, summary.Summary.WorstBucket)
	tg.assertExpectations(t)
}

func TestGateway_GetAgingSummary_DefaultConflictIsSkipped(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.schedules.On("MarkOverdue", ctx, mock.Anything, 1).Return(nil)
	tg.contracts.On("UpdateStatus", ctx, c.ID, contract.StatusDefaulted, 1).
		Return(contract.ErrConcurrentModification{ContractID: c.ID}).Once()

	summary, err := tg.gateway.GetAgingSummary(ctx, c.ID, date(2024, 6, 30))
	require.NoError(t, err)
	assert.Equal(t, contract.StatusActive, summary.ContractStatus)
}

func TestGateway_GetAgingSummary_ClosesSettledContract(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)
	c.Status = contract.StatusDefaulted
	c.Version = 3
	for _, e := range entries {
		paidAt := e.DueDate
		e.Status = schedule.StatusPaid
		e.PaidAmount = e.TotalDue
		e.PaidAt = &paidAt
	}

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.contracts.On("UpdateStatus", ctx, c.ID, contract.StatusClosed, 3).Return(nil).Once()

	summary, err := tg.gateway.GetAgingSummary(ctx, c.ID, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, contract.StatusClosed, summary.ContractStatus)
	assert.True(t, summary.Summary.TotalOutstanding.IsZero())
	tg.assertExpectations(t)
}

func TestGateway_GetAgingSummary_UnknownContract(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, _ := workedContract(t)
	tg.contracts.On("GetByID", ctx, c.ID).Return(nil, contract.ErrContractNotFound{ContractID: c.ID}).Once()

	_, err := tg.gateway.GetAgingSummary(ctx, c.ID, date(2024, 4, 15))
	assert.ErrorIs(t, err, contract.ErrContractNotFound{ContractID: c.ID})
}
