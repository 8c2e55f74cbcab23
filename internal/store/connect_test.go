package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}

func never(error) bool { return false }

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	v, err := withRetry(context.Background(), fastRetry, "op", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection refused")
		}
		return 7, nil
	}, never)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), fastRetry, "dial", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("connection refused")
	}, never)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "store: dial")
}

func TestWithRetry_PermanentStopsEarly(t *testing.T) {
	bad := errors.New("bad dsn")
	calls := 0
	_, err := withRetry(context.Background(), fastRetry, "dial", func(context.Context) (int, error) {
		calls++
		return 0, bad
	}, func(err error) bool { return errors.Is(err, bad) })
	assert.ErrorIs(t, err, bad)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}, "dial",
		func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, errors.New("refused")
		}, never)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_BackoffCaps(t *testing.T) {
	p := RetryPolicy{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}
	assert.Equal(t, time.Second, p.backoff(0))
	assert.Equal(t, 4*time.Second, p.backoff(2))
	assert.Equal(t, 5*time.Second, p.backoff(3))
	assert.Equal(t, 5*time.Second, p.backoff(80))
}

func TestConnectPostgres_MalformedURLFailsFast(t *testing.T) {
	start := time.Now()
	_, err := ConnectPostgres(context.Background(), "postgres://%zz", nil,
		RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: time.Second})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
