package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/matching"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/verification"
	"github.com/loan-slip-reconciler/internal/reconciliation"
)

// PaginatedResponse is a generic version of Response for testing paginated data
type PaginatedResponse[T any] struct {
	Data          []T        `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

// TypedResponse is a generic version of Response for testing single objects
type TypedResponse[T any] struct {
	Data          T          `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) ComputeSchedule(terms contract.Terms) ([]*schedule.Entry, error) {
	args := m.Called(terms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*schedule.Entry), args.Error(1)
}

func (m *MockReconciliationService) CreateContract(ctx context.Context, terms contract.Terms) (*contract.Contract, []*schedule.Entry, error) {
	args := m.Called(ctx, terms)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*contract.Contract), args.Get(1).([]*schedule.Entry), args.Error(2)
}

func (m *MockReconciliationService) GetContract(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contract.Contract), args.Error(1)
}

func (m *MockReconciliationService) GetSchedule(ctx context.Context, contractID uuid.UUID) ([]*schedule.Entry, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*schedule.Entry), args.Error(1)
}

func (m *MockReconciliationService) GetAgingSummary(ctx context.Context, contractID uuid.UUID, asOf time.Time) (*reconciliation.AgingSummary, error) {
	args := m.Called(ctx, contractID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.AgingSummary), args.Error(1)
}

func (m *MockReconciliationService) VerifySlip(ctx context.Context, submission *shared.SlipSubmission) (matching.Result, error) {
	args := m.Called(ctx, submission)
	return args.Get(0).(matching.Result), args.Error(1)
}

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) SubmitSlip(ctx context.Context, submission *shared.SlipSubmission) (*verification.Record, error) {
	args := m.Called(ctx, submission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Record), args.Error(1)
}

func (m *MockSubmissionService) GetVerification(ctx context.Context, submissionID uuid.UUID) (*verification.Record, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Record), args.Error(1)
}

func (m *MockSubmissionService) GetVerificationsByContractID(ctx context.Context, contractID uuid.UUID, page, perPage int) ([]*verification.Record, int64, error) {
	args := m.Called(ctx, contractID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*verification.Record), args.Get(1).(int64), args.Error(2)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func decodeResponse[T any](t *testing.T, body []byte) TypedResponse[T] {
	t.Helper()
	var response TypedResponse[T]
	require.NoError(t, json.Unmarshal(body, &response))
	return response
}
