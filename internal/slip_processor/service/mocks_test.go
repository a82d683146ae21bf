package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/loan-slip-reconciler/internal/domain/matching"
	"github.com/loan-slip-reconciler/internal/domain/shared"
)

// MockProcessingService mocks the ProcessingService interface
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessSubmission(ctx context.Context, submission *shared.SlipSubmission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

type MockSlipVerifier struct {
	mock.Mock
}

func (m *MockSlipVerifier) VerifySlip(ctx context.Context, submission *shared.SlipSubmission) (matching.Result, error) {
	args := m.Called(ctx, submission)
	return args.Get(0).(matching.Result), args.Error(1)
}

type MockSubmissionTracker struct {
	mock.Mock
}

func (m *MockSubmissionTracker) AlreadyProcessed(ctx context.Context, submissionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, submissionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubmissionTracker) MarkProcessing(ctx context.Context, submissionID uuid.UUID) {
	m.Called(ctx, submissionID)
}

func newSubmission() *shared.SlipSubmission {
	return &shared.SlipSubmission{
		SubmissionID:  uuid.New(),
		ContractID:    uuid.New(),
		ImageBase64:   "aW1hZ2U=",
		MimeType:      "image/png",
		CorrelationID: "corr1",
	}
}
