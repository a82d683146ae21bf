package outbox_poller

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/loan-slip-reconciler/internal/domain/outbox"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/verification"
)

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

// MockAuditPublisher for testing
type MockAuditPublisher struct {
	mock.Mock
}

func (m *MockAuditPublisher) PublishToAudit(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}
