package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/city-pulse/internal/db"
)

// RetryPolicy bounds connection attempts to a database that may still be
// starting up.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy tries three times starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 500 * time.Millisecond, MaxBackoff: 10 * time.Second}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitialBackoff << attempt
	if d <= 0 || d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// ConnectPostgres is NewPostgres with retries. Malformed connection strings
// fail immediately.
func ConnectPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig, p RetryPolicy) (*PostgresStore, error) {
	return withRetry(ctx, p, "postgres connect", func(ctx context.Context) (*PostgresStore, error) {
		return NewPostgres(ctx, connString, poolCfg)
	}, isPermanentConnectError)
}

func isPermanentConnectError(err error) bool {
	var pce *pgconn.ParseConfigError
	return errors.As(err, &pce)
}

// withRetry calls fn until it succeeds, returns a permanent error, ctx ends,
// or the attempts run out. The backoff doubles after each failure.
func withRetry[T any](ctx context.Context, p RetryPolicy, op string, fn func(context.Context) (T, error), permanent func(error) bool) (T, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if ctx.Err() != nil || permanent(err) || attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.backoff(attempt)
		zap.L().Warn("retrying operation",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, eris.Wrapf(lastErr, "store: %s", op)
		case <-timer.C:
		}
	}
	return zero, eris.Wrapf(lastErr, "store: %s", op)
}
