package csvetl

import (
	"context"
	"time"
)

// Approver confirms destructive loads. A replace run truncates the
// destination table and asks first.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type the table name for confirmation
type Approver interface {
	// RequestApproval prompts for confirmation before the table is truncated.
	//
	// Returns:
	//   - bool: true if approved, false if denied
	//   - error: Any error that occurred during the approval process
	RequestApproval(ctx context.Context, table string) (bool, error)
}

// Progress is one advisory load update.
type Progress struct {
	// Loaded is the number of rows written so far.
	Loaded int
	Total  int

	// Batch is the 1-based number of the batch just written.
	Batch   int
	Batches int
}

// ProgressReporter receives load progress. Implementations must not block.
type ProgressReporter interface {
	OnProgress(ctx context.Context, p Progress)
}

// ErrorClassifier determines whether an error is transient (retryable) or fatal.
type ErrorClassifier interface {
	// IsTransient returns true if the error is temporary and the operation should be retried.
	IsTransient(err error) bool
}

// BackoffStrategy calculates the delay before the next retry attempt.
type BackoffStrategy interface {
	// NextDelay returns the duration to wait before the next attempt.
	// attempt is zero-indexed (0 = first retry, 1 = second retry, etc.)
	NextDelay(attempt int) time.Duration

	// MaxAttempts returns the maximum number of retry attempts (0 = no retries, -1 = unlimited)
	MaxAttempts() int
}
