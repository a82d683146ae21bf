package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/matching"
	"github.com/loan-slip-reconciler/internal/domain/outbox"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/slip"
	"github.com/loan-slip-reconciler/internal/domain/verification"
	"github.com/loan-slip-reconciler/internal/slipadapter"
)

const testImage = "aW1hZ2U="

func newSubmission(contractID uuid.UUID) *shared.SlipSubmission {
	return &shared.SlipSubmission{
		SubmissionID:  uuid.New(),
		ContractID:    contractID,
		ImageBase64:   testImage,
		MimeType:      "image/png",
		CorrelationID: "corr-1",
		Timestamp:     time.Now().UTC(),
	}
}

func extractedSlip(txID, amount string, ts time.Time) *slip.Record {
	return &slip.Record{TransactionID: txID, Amount: dec(amount), Timestamp: ts, PayerRef: "payer"}
}

func auditRecord(check func(r *verification.Record) bool) interface{} {
	return mock.MatchedBy(check)
}

func TestGateway_VerifySlip_WorkedExample(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)
	submission := newSubmission(c.ID)

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.validator.On("Validate", testImage, "image/png").Return(nil).Once()
	tg.extractor.On("Extract", ctx, testImage).
		Return(extractedSlip("TX-1", "1240.00", date(2024, 2, 28)), nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.bindings.On("Create", ctx, mock.MatchedBy(func(b *slip.Binding) bool {
		return b.TransactionID == "TX-1" && b.EntryID == entries[0].ID && b.ContractID == c.ID
	})).Return(nil).Once()
	tg.schedules.On("CompareAndBindEntry", ctx, mock.MatchedBy(func(cmd schedule.BindCommand) bool {
		return cmd.EntryID == entries[0].ID &&
			cmd.ExpectedVersion == 1 &&
			cmd.NewStatus == schedule.StatusPaid &&
			cmd.PaidAmount.Equal(dec("1240")) &&
			cmd.SlipRef == "TX-1"
	})).Return(nil).Once()
	tg.outbox.On("Create", ctx, mock.MatchedBy(func(m *outbox.Message) bool {
		record, err := m.GetVerificationRecord()
		return err == nil &&
			m.SubmissionID == submission.SubmissionID &&
			record.Outcome == matching.OutcomeMatched &&
			record.EntryID == entries[0].ID &&
			record.Amount == "1240.00"
	})).Return(nil).Once()

	result, err := tg.gateway.VerifySlip(ctx, submission)
	require.NoError(t, err)

	assert.Equal(t, matching.OutcomeMatched, result.Outcome)
	assert.Equal(t, entries[0].ID, result.EntryID)
	assert.Equal(t, 1, result.Sequence)
	assert.Equal(t, matching.ConfidenceHigh, result.Confidence)
	assert.Equal(t, 1, tg.tx.calls)
	tg.verification.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_PartialPayment(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.validator.On("Validate", testImage, "image/png").Return(nil).Once()
	tg.extractor.On("Extract", ctx, testImage).
		Return(extractedSlip("TX-P", "500.00", date(2024, 2, 20)), nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.bindings.On("Create", ctx, mock.Anything).Return(nil).Once()
	tg.schedules.On("CompareAndBindEntry", ctx, mock.MatchedBy(func(cmd schedule.BindCommand) bool {
		return cmd.NewStatus == schedule.StatusPartial && cmd.PaidAmount.Equal(dec("500")) && cmd.PaidAt == nil
	})).Return(nil).Once()
	tg.outbox.On("Create", ctx, mock.Anything).Return(nil).Once()

	result, err := tg.gateway.VerifySlip(ctx, newSubmission(c.ID))
	require.NoError(t, err)
	assert.Equal(t, matching.ConfidencePartial, result.Confidence)
	assert.Equal(t, entries[0].ID, result.EntryID)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_UnknownContract(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	id := uuid.New()
	notFound := contract.ErrContractNotFound{ContractID: id}

	tg.contracts.On("GetByID", ctx, id).Return(nil, notFound).Once()
	tg.verification.On("Save", ctx, auditRecord(func(r *verification.Record) bool {
		return r.Status == shared.VerificationStatusFailed && r.FailureReason == shared.FailureReasonContractNotFound
	})).Return(nil).Once()

	_, err := tg.gateway.VerifySlip(ctx, newSubmission(id))
	assert.ErrorIs(t, err, notFound)
	tg.validator.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_InvalidImage(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, _ := workedContract(t)

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.validator.On("Validate", testImage, "image/png").
		Return(slipadapter.ValidationError{Reason: "image is below the minimum size"}).Once()
	tg.verification.On("Save", ctx, auditRecord(func(r *verification.Record) bool {
		return r.Status == shared.VerificationStatusFailed && r.FailureReason == shared.FailureReasonInvalidInput
	})).Return(nil).Once()

	_, err := tg.gateway.VerifySlip(ctx, newSubmission(c.ID))

	var inputErr shared.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "image is below the minimum size", inputErr.Reason)
	tg.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_ProviderUnavailable(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, _ := workedContract(t)
	extErr := slipadapter.ExtractionError{Reason: "provider unavailable after retries", Err: errors.New("503")}

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.validator.On("Validate", testImage, "image/png").Return(nil).Once()
	tg.extractor.On("Extract", ctx, testImage).Return(nil, extErr).Once()
	tg.verification.On("Save", ctx, auditRecord(func(r *verification.Record) bool {
		return r.Status == shared.VerificationStatusFailed && r.FailureReason == shared.FailureReasonVerificationUnavailable
	})).Return(nil).Once()

	_, err := tg.gateway.VerifySlip(ctx, newSubmission(c.ID))

	var providerErr shared.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "provider unavailable after retries", providerErr.Reason)
	assert.Contains(t, err.Error(), shared.VerificationUnavailable)
	tg.schedules.AssertNotCalled(t, "GetByContractID", mock.Anything, mock.Anything)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_NoMatchIsAudited(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.validator.On("Validate", testImage, "image/png").Return(nil).Once()
	tg.extractor.On("Extract", ctx, testImage).
		Return(extractedSlip("TX-BIG", "5000.00", date(2024, 2, 28)), nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.verification.On("Save", ctx, auditRecord(func(r *verification.Record) bool {
		return r.Status == shared.VerificationStatusCompleted &&
			r.Outcome == matching.OutcomeNoMatch &&
			r.Reason == matching.ReasonNoEligibleEntry &&
			r.TransactionID == "TX-BIG"
	})).Return(nil).Once()

	result, err := tg.gateway.VerifySlip(ctx, newSubmission(c.ID))
	require.NoError(t, err)
	assert.Equal(t, matching.NoMatch(matching.ReasonNoEligibleEntry), result)
	assert.Zero(t, tg.tx.calls)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_DuplicateFromStore(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.validator.On("Validate", testImage, "image/png").Return(nil).Once()
	tg.extractor.On("Extract", ctx, testImage).
		Return(extractedSlip("TX-1", "1240.00", date(2024, 2, 28)), nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.bindings.On("Create", ctx, mock.Anything).
		Return(shared.DuplicateSubmissionError{TransactionID: "TX-1"}).Once()
	tg.verification.On("Save", ctx, auditRecord(func(r *verification.Record) bool {
		return r.Outcome == matching.OutcomeNoMatch && r.Reason == matching.ReasonDuplicateSubmission
	})).Return(nil).Once()

	result, err := tg.gateway.VerifySlip(ctx, newSubmission(c.ID))
	require.NoError(t, err)
	assert.Equal(t, matching.NoMatch(matching.ReasonDuplicateSubmission), result)
	tg.schedules.AssertNotCalled(t, "CompareAndBindEntry", mock.Anything, mock.Anything)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_RetriesAfterLostRace(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)

	// A concurrent writer settled entry 1 between our read and our write
	refreshed := make([]*schedule.Entry, len(entries))
	for i, e := range entries {
		cp := *e
		refreshed[i] = &cp
	}
	paidAt := date(2024, 2, 27)
	refreshed[0].Status = schedule.StatusPaid
	refreshed[0].PaidAmount = refreshed[0].TotalDue
	refreshed[0].PaidAt = &paidAt
	refreshed[0].SlipRefs = []string{"TX-OTHER"}
	refreshed[0].Version = 2

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Twice()
	tg.validator.On("Validate", testImage, "image/png").Return(nil).Once()
	tg.extractor.On("Extract", ctx, testImage).
		Return(extractedSlip("TX-2", "1240.00", date(2024, 2, 28)), nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(refreshed, nil).Once()
	tg.bindings.On("Create", ctx, mock.Anything).Return(nil).Twice()
	tg.schedules.On("CompareAndBindEntry", ctx, mock.MatchedBy(func(cmd schedule.BindCommand) bool {
		return cmd.EntryID == entries[0].ID
	})).Return(shared.ConflictError{Resource: "schedule_entry", ID: entries[0].ID.String()}).Once()
	tg.schedules.On("CompareAndBindEntry", ctx, mock.MatchedBy(func(cmd schedule.BindCommand) bool {
		return cmd.EntryID == entries[1].ID
	})).Return(nil).Once()
	tg.outbox.On("Create", ctx, mock.Anything).Return(nil).Once()

	result, err := tg.gateway.VerifySlip(ctx, newSubmission(c.ID))
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeMatched, result.Outcome)
	assert.Equal(t, entries[1].ID, result.EntryID)
	assert.Equal(t, 2, result.Sequence)
	assert.Equal(t, 2, tg.tx.calls)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_LostRaceAfterRetries(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	tg.validator.On("Validate", testImage, "image/png").Return(nil).Once()
	tg.extractor.On("Extract", ctx, testImage).
		Return(extractedSlip("TX-1", "1240.00", date(2024, 2, 28)), nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Times(3)
	tg.bindings.On("Create", ctx, mock.Anything).Return(nil).Times(3)
	tg.schedules.On("CompareAndBindEntry", ctx, mock.Anything).
		Return(shared.ConflictError{Resource: "schedule_entry"}).Times(3)
	tg.verification.On("Save", ctx, auditRecord(func(r *verification.Record) bool {
		return r.Outcome == matching.OutcomeNoMatch && r.Reason == matching.ReasonLostRace && r.EntryID == uuid.Nil
	})).Return(nil).Once()

	result, err := tg.gateway.VerifySlip(ctx, newSubmission(c.ID))
	require.NoError(t, err)
	assert.Equal(t, matching.NoMatch(matching.ReasonLostRace), result)
	assert.Equal(t, 3, tg.tx.calls)
	tg.outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_ClosesContractOnFinalInstallment(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)
	for _, e := range entries[:11] {
		e.Status = schedule.StatusPaid
		e.PaidAmount = e.TotalDue
	}
	settled := make([]*schedule.Entry, len(entries))
	for i, e := range entries {
		cp := *e
		settled[i] = &cp
	}
	settled[11].Status = schedule.StatusPaid
	settled[11].PaidAmount = settled[11].TotalDue

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.validator.On("Validate", testImage, "image/png").Return(nil).Once()
	tg.extractor.On("Extract", ctx, testImage).
		Return(extractedSlip("TX-LAST", entries[11].TotalDue.StringFixed(2), entries[11].DueDate), nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.bindings.On("Create", ctx, mock.Anything).Return(nil).Once()
	tg.schedules.On("CompareAndBindEntry", ctx, mock.Anything).Return(nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(settled, nil).Once()
	tg.contracts.On("UpdateStatus", ctx, c.ID, contract.StatusClosed, c.Version).Return(nil).Once()
	tg.outbox.On("Create", ctx, mock.Anything).Return(nil).Once()

	result, err := tg.gateway.VerifySlip(ctx, newSubmission(c.ID))
	require.NoError(t, err)
	assert.Equal(t, entries[11].ID, result.EntryID)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_StorageError(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)
	dbErr := errors.New("connection refused")

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.validator.On("Validate", testImage, "image/png").Return(nil).Once()
	tg.extractor.On("Extract", ctx, testImage).
		Return(extractedSlip("TX-1", "1240.00", date(2024, 2, 28)), nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.bindings.On("Create", ctx, mock.Anything).Return(nil).Once()
	tg.schedules.On("CompareAndBindEntry", ctx, mock.Anything).Return(dbErr).Once()
	tg.verification.On("Save", ctx, auditRecord(func(r *verification.Record) bool {
		return r.Status == shared.VerificationStatusFailed && r.FailureReason == shared.FailureReasonUnknownError
	})).Return(nil).Once()

	_, err := tg.gateway.VerifySlip(ctx, newSubmission(c.ID))
	assert.ErrorIs(t, err, dbErr)
	tg.assertExpectations(t)
}

func TestGateway_VerifySlip_AuditFailureDoesNotChangeResult(t *testing.T) {
	ctx := context.Background()
	tg := newTestGateway()
	c, entries := workedContract(t)

	tg.contracts.On("GetByID", ctx, c.ID).Return(c, nil).Once()
	tg.validator.On("Validate", testImage, "image/png").Return(nil).Once()
	tg.extractor.On("Extract", ctx, testImage).
		Return(extractedSlip("TX-BIG", "9999.00", date(2024, 2, 28)), nil).Once()
	tg.schedules.On("GetByContractID", ctx, c.ID).Return(entries, nil).Once()
	tg.verification.On("Save", ctx, mock.Anything).Return(errors.New("mongo down")).Once()

	result, err := tg.gateway.VerifySlip(ctx, newSubmission(c.ID))
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeNoMatch, result.Outcome)
}
