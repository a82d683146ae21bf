package reconciliation

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/loan-slip-reconciler/internal/config"
	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/outbox"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/slip"
	"github.com/loan-slip-reconciler/internal/domain/verification"
)

type MockContractRepo struct {
	mock.Mock
}

func (m *MockContractRepo) Create(ctx context.Context, c *contract.Contract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contract.Contract), args.Error(1)
}

func (m *MockContractRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status contract.Status, expectedVersion int) error {
	args := m.Called(ctx, id, status, expectedVersion)
	return args.Error(0)
}

func (m *MockContractRepo) WithTx(tx pgx.Tx) contract.Repository {
	args := m.Called(tx)
	return args.Get(0).(contract.Repository)
}

type MockScheduleRepo struct {
	mock.Mock
}

func (m *MockScheduleRepo) CreateBatch(ctx context.Context, entries []*schedule.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockScheduleRepo) GetByContractID(ctx context.Context, contractID uuid.UUID) ([]*schedule.Entry, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*schedule.Entry), args.Error(1)
}

func (m *MockScheduleRepo) CompareAndBindEntry(ctx context.Context, cmd schedule.BindCommand) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *MockScheduleRepo) MarkOverdue(ctx context.Context, entryID uuid.UUID, expectedVersion int) error {
	args := m.Called(ctx, entryID, expectedVersion)
	return args.Error(0)
}

func (m *MockScheduleRepo) WithTx(tx pgx.Tx) schedule.Repository {
	args := m.Called(tx)
	return args.Get(0).(schedule.Repository)
}

type MockBindingRepo struct {
	mock.Mock
}

func (m *MockBindingRepo) Create(ctx context.Context, binding *slip.Binding) error {
	args := m.Called(ctx, binding)
	return args.Error(0)
}

func (m *MockBindingRepo) WithTx(tx pgx.Tx) slip.BindingRepository {
	args := m.Called(tx)
	return args.Get(0).(slip.BindingRepository)
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

type MockVerificationRepo struct {
	mock.Mock
}

func (m *MockVerificationRepo) Create(ctx context.Context, record *verification.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockVerificationRepo) GetBySubmissionID(ctx context.Context, submissionID uuid.UUID) (*verification.Record, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Record), args.Error(1)
}

func (m *MockVerificationRepo) GetByContractID(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]*verification.Record, error) {
	args := m.Called(ctx, contractID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*verification.Record), args.Error(1)
}

func (m *MockVerificationRepo) CountByContractID(ctx context.Context, contractID uuid.UUID) (int64, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVerificationRepo) UpdateStatus(ctx context.Context, submissionID uuid.UUID, status shared.VerificationStatus, reason shared.FailureReason) error {
	args := m.Called(ctx, submissionID, status, reason)
	return args.Error(0)
}

func (m *MockVerificationRepo) Save(ctx context.Context, record *verification.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(imageBase64, mimeType string) error {
	args := m.Called(imageBase64, mimeType)
	return args.Error(0)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, imageBase64 string) (*slip.Record, error) {
	args := m.Called(ctx, imageBase64)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*slip.Record), args.Error(1)
}

// fakeTxRunner runs fn without a real transaction
type fakeTxRunner struct {
	calls int
}

func (f *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.calls++
	return fn(nil)
}

type testGateway struct {
	gateway      *Gateway
	tx           *fakeTxRunner
	contracts    *MockContractRepo
	schedules    *MockScheduleRepo
	bindings     *MockBindingRepo
	outbox       *MockOutboxRepo
	verification *MockVerificationRepo
	validator    *MockValidator
	extractor    *MockExtractor
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway() *testGateway {
	tg := &testGateway{
		tx:           &fakeTxRunner{},
		contracts:    new(MockContractRepo),
		schedules:    new(MockScheduleRepo),
		bindings:     new(MockBindingRepo),
		outbox:       new(MockOutboxRepo),
		verification: new(MockVerificationRepo),
		validator:    new(MockValidator),
		extractor:    new(MockExtractor),
	}

	tg.contracts.On("WithTx", mock.Anything).Return(tg.contracts).Maybe()
	tg.schedules.On("WithTx", mock.Anything).Return(tg.schedules).Maybe()
	tg.bindings.On("WithTx", mock.Anything).Return(tg.bindings).Maybe()
	tg.outbox.On("WithTx", mock.Anything).Return(tg.outbox).Maybe()

	logger := newTestLogger()
	tg.gateway = NewGateway(Dependencies{
		TxRunner:  tg.tx,
		Contracts: tg.contracts,
		Schedules: tg.schedules,
		Bindings:  tg.bindings,
		Outbox:    tg.outbox,
		Validator: tg.validator,
		Extractor: tg.extractor,
		Audit:     NewAuditRecorder(tg.verification, logger),
	}, &config.MatchingConfig{
		WindowDays:           5,
		MaxBindRetries:       3,
		DefaultThresholdDays: 90,
	}, logger)
	tg.gateway.readBackoff = time.Millisecond

	return tg
}

func (tg *testGateway) assertExpectations(t mock.TestingT) {
	tg.contracts.AssertExpectations(t)
	tg.schedules.AssertExpectations(t)
	tg.bindings.AssertExpectations(t)
	tg.outbox.AssertExpectations(t)
	tg.verification.AssertExpectations(t)
	tg.validator.AssertExpectations(t)
	tg.extractor.AssertExpectations(t)
}
