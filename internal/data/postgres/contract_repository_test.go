package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loan-slip-reconciler/internal/domain/contract"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestContract() *contract.Contract {
	now := time.Now()
	return &contract.Contract{
		ID:         uuid.New(),
		BorrowerID: "borrower-17",
		Principal:  decimal.RequireFromString("12000"),
		Rate:       decimal.RequireFromString("0.02"),
		RateBasis:  contract.RateBasisMonthly,
		TermMonths: 12,
		StartDate:  time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
		Status:     contract.StatusActive,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestContractRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContractRepository{querier: mock, logger: newTestLogger()}
	c := newTestContract()

	query := `
		INSERT INTO contracts \(id, borrower_id, principal, rate, rate_basis, term_months, start_date, status, version, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.ID, c.BorrowerID, c.Principal, c.Rate, c.RateBasis, c.TermMonths, c.StartDate, c.Status, c.Version, c.CreatedAt, c.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, c)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(c.ID, c.BorrowerID, c.Principal, c.Rate, c.RateBasis, c.TermMonths, c.StartDate, c.Status, c.Version, c.CreatedAt, c.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, c)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create contract")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContractRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContractRepository{querier: mock, logger: newTestLogger()}
	expected := newTestContract()

	query := `
		SELECT id, borrower_id, principal, rate, rate_basis, term_months, start_date, status, version, created_at, updated_at
		FROM contracts
		WHERE id = \$1
	`
	columns := []string{"id", "borrower_id", "principal", "rate", "rate_basis", "term_months", "start_date", "status", "version", "created_at", "updated_at"}

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(columns).
			AddRow(expected.ID, expected.BorrowerID, expected.Principal.String(), expected.Rate.String(), expected.RateBasis, expected.TermMonths, expected.StartDate, expected.Status, expected.Version, expected.CreatedAt, expected.UpdatedAt)
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnRows(rows)

		c, err := repo.GetByID(ctx, expected.ID)
		require.NoError(t, err)
		assert.Equal(t, expected, c)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(pgx.ErrNoRows)

		c, err := repo.GetByID(ctx, expected.ID)
		assert.Nil(t, c)
		var notFound contract.ErrContractNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, expected.ID, notFound.ContractID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(dbErr)

		c, err := repo.GetByID(ctx, expected.ID)
		assert.Nil(t, c)
		assert.Contains(t, err.Error(), "failed to get contract")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContractRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ContractRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()

	query := `
		UPDATE contracts
		SET status = \$1, version = version \+ 1, updated_at = NOW\(\)
		WHERE id = \$2 AND version = \$3
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(contract.StatusClosed, id, 3).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatus(ctx, id, contract.StatusClosed, 3)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("version conflict", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(contract.StatusDefaulted, id, 3).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, id, contract.StatusDefaulted, 3)
		assert.ErrorIs(t, err, contract.ErrConcurrentModification{ContractID: id})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mock.ExpectExec(query).
			WithArgs(contract.StatusClosed, id, 3).
			WillReturnError(dbErr)

		err := repo.UpdateStatus(ctx, id, contract.StatusClosed, 3)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to update contract status")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContractRepository_WithTx(t *testing.T) {
	repo := &ContractRepository{querier: nil, logger: slog.Default()}

	txRepo := repo.WithTx(pgx.Tx(nil))

	contractRepo, ok := txRepo.(*ContractRepository)
	require.True(t, ok)
	assert.Nil(t, contractRepo.querier)
	assert.Equal(t, repo.logger, contractRepo.logger)
}
