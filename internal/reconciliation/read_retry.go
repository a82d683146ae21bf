package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/loan-slip-reconciler/internal/domain/contract"
	"github.com/loan-slip-reconciler/internal/domain/schedule"
)

const (
	readAttempts       = 3
	defaultReadBackoff = 50 * time.Millisecond
)

// transientReadError reports whether a failed read may succeed when repeated: the
// connection broke before the query reached the server, or the server timed out.
func transientReadError(err error) bool {
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// readWithRetry repeats a storage read that failed transiently, doubling the pause
// between attempts. Any other error is returned at once.
func readWithRetry[T any](ctx context.Context, g *Gateway, op string, read func(context.Context) (T, error)) (T, error) {
	backoff := g.readBackoff
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= readAttempts; attempt++ {
		out, err = read(ctx)
		if err == nil || !transientReadError(err) || attempt == readAttempts {
			return out, err
		}

		g.logger.Warn("Transient storage read failure, retrying",
			"operation", op,
			"attempt", attempt,
			"max_attempts", readAttempts,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return out, err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return out, err
}

func (g *Gateway) loadContract(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	return readWithRetry(ctx, g, "get contract", func(ctx context.Context) (*contract.Contract, error) {
		return g.contracts.GetByID(ctx, id)
	})
}

func (g *Gateway) loadSchedule(ctx context.Context, contractID uuid.UUID) ([]*schedule.Entry, error) {
	return readWithRetry(ctx, g, "get schedule", func(ctx context.Context) ([]*schedule.Entry, error) {
		return g.schedules.GetByContractID(ctx, contractID)
	})
}
