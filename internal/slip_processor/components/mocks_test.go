package components

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/loan-slip-reconciler/internal/domain/matching"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/verification"
)

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

type MockSlipVerifier struct {
	mock.Mock
}

func (m *MockSlipVerifier) VerifySlip(ctx context.Context, submission *shared.SlipSubmission) (matching.Result, error) {
	args := m.Called(ctx, submission)
	return args.Get(0).(matching.Result), args.Error(1)
}
