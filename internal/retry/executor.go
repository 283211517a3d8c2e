package retry

import (
	"context"
	"time"

	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// Executor runs an operation until it succeeds, fails fatally, or the
// backoff strategy runs out of attempts.
//
// WithOnRetry returns a copy, so a shared Executor can be specialised per
// caller without synchronisation.
type Executor struct {
	classifier csvetl.ErrorClassifier
	strategy   csvetl.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor panics if classifier or strategy is nil.
func NewExecutor(classifier csvetl.ErrorClassifier, strategy csvetl.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// WithOnRetry returns a new Executor that calls callback before each wait.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute returns nil on the first success, the first fatal error, the
// context error if ctx ends while waiting, or the last transient error once
// attempts are exhausted.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	err := operation(ctx)
	maxAttempts := e.strategy.MaxAttempts()

	for attempt := 0; err != nil && e.classifier.IsTransient(err); attempt++ {
		if maxAttempts >= 0 && attempt >= maxAttempts {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}
		if waitErr := sleep(ctx, delay); waitErr != nil {
			return waitErr
		}

		err = operation(ctx)
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
