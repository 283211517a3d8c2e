// Package retry re-attempts connection establishment with exponential
// backoff when the failure looks transient.
//
// Only dialing and the initial ping are retried. Statements inside a load
// transaction are never replayed, so a half-written batch cannot be sent
// twice.
//
//	classifier := retry.NewDatabaseErrorClassifier()
//	strategy := retry.NewExponentialBackoff(3)
//	executor := retry.NewExecutor(classifier, strategy)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
package retry
