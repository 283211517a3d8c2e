package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = &pgconn.PgError{Code: "08006", Message: "connection failure"}

type flakyOperation struct {
	calls    int
	failures int
	final    error
}

func (f *flakyOperation) run(ctx context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errTransient
	}
	return f.final
}

func fastBackoff(attempts int) *ExponentialBackoff {
	return NewExponentialBackoff(attempts, WithInitialDelay(time.Millisecond), WithMaxDelay(5*time.Millisecond), WithJitter(0))
}

func TestExecutor_SucceedsFirstTime(t *testing.T) {
	op := &flakyOperation{}
	err := NewExecutor(NewDatabaseErrorClassifier(), fastBackoff(3)).Execute(context.Background(), op.run)
	require.NoError(t, err)
	assert.Equal(t, 1, op.calls)
}

func TestExecutor_RetriesTransientErrors(t *testing.T) {
	op := &flakyOperation{failures: 2}
	var attempts []int

	executor := NewExecutor(NewDatabaseErrorClassifier(), fastBackoff(5)).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
			assert.ErrorIs(t, err, errTransient)
		})

	require.NoError(t, executor.Execute(context.Background(), op.run))
	assert.Equal(t, 3, op.calls)
	assert.Equal(t, []int{0, 1}, attempts)
}

func TestExecutor_StopsOnFatalError(t *testing.T) {
	fatal := &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}
	op := &flakyOperation{failures: 1, final: fatal}

	err := NewExecutor(NewDatabaseErrorClassifier(), fastBackoff(5)).Execute(context.Background(), op.run)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 2, op.calls)
}

func TestExecutor_ExhaustsAttempts(t *testing.T) {
	op := &flakyOperation{failures: 100}

	err := NewExecutor(NewDatabaseErrorClassifier(), fastBackoff(3)).Execute(context.Background(), op.run)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 4, op.calls, "first try plus three retries")
}

func TestExecutor_ZeroAttemptsMeansSingleTry(t *testing.T) {
	op := &flakyOperation{failures: 100}

	err := NewExecutor(NewDatabaseErrorClassifier(), fastBackoff(0)).Execute(context.Background(), op.run)
	assert.Error(t, err)
	assert.Equal(t, 1, op.calls)
}

func TestExecutor_ContextCanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	op := &flakyOperation{failures: 100}

	executor := NewExecutor(NewDatabaseErrorClassifier(),
		NewExponentialBackoff(-1, WithInitialDelay(time.Hour), WithMaxDelay(time.Hour), WithJitter(0))).
		WithOnRetry(func(int, error, time.Duration) { cancel() })

	err := executor.Execute(ctx, op.run)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, op.calls)
}

func TestExecutor_WithOnRetryDoesNotMutateOriginal(t *testing.T) {
	base := NewExecutor(NewDatabaseErrorClassifier(), fastBackoff(1))
	called := false
	_ = base.WithOnRetry(func(int, error, time.Duration) { called = true })

	op := &flakyOperation{failures: 1}
	require.NoError(t, base.Execute(context.Background(), op.run))
	assert.False(t, called)
}

func TestNewExecutor_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewExecutor(nil, fastBackoff(1)) })
	assert.Panics(t, func() { NewExecutor(NewDatabaseErrorClassifier(), nil) })
}
