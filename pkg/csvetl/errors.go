package csvetl

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds of a run.
// Callers distinguish them with errors.Is(); every error returned by a run
// wraps exactly one of these.
//
// Example usage:
//
//	result, err := runner.Run(ctx, cfg)
//	if errors.Is(err, csvetl.ErrWrite) {
//	    // the destination table was rolled back
//	}
var (
	// ErrInvalidConfig indicates an invalid configuration, detected before any I/O.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnection indicates the store connection could not be acquired.
	ErrConnection = errors.New("connection failed")

	// ErrSourceNotFound indicates the delimited source does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrMalformedSource indicates the source could not be parsed or decoded.
	ErrMalformedSource = errors.New("malformed source")

	// ErrSchemaConflict indicates a column name collision or a missing primary-key column.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrWrite indicates the store rejected a provisioning or load operation.
	ErrWrite = errors.New("write failed")

	// ErrInternalInvariant indicates a row/column length mismatch. Always a bug.
	ErrInternalInvariant = errors.New("internal invariant violation")

	// ErrApprovalDenied indicates the user denied approval for a destructive load.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrUnsupportedDriver indicates the requested store driver is not supported.
	ErrUnsupportedDriver = errors.New("unsupported driver")
)

// StageError is the terminal error of a failed run.
// It records where the run stopped and whether the transaction was rolled back.
type StageError struct {
	// Stage is the state the run was in when it failed.
	Stage RunState

	// RunID identifies the run in logs.
	RunID string

	// RolledBack is true when a transaction was open and its rollback succeeded.
	RolledBack bool

	// RollbackErr is set when the rollback itself failed.
	RollbackErr error

	Err error
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s failed during %s: %v", e.RunID, e.Stage, e.Err)
	if e.RollbackErr != nil {
		fmt.Fprintf(&b, " (rollback failed: %v)", e.RollbackErr)
	} else if e.RolledBack {
		b.WriteString(" (rolled back, destination table unchanged)")
	}
	return b.String()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// usageErrorPrefixes match the messages cobra produces for command-line misuse.
var usageErrorPrefixes = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"required flag",
	"invalid argument",
	"flag needs an argument",
	"missing required argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnsupportedAuthMethod),
		errors.Is(err, ErrUnsupportedDriver):
		return ExitConfigError
	case errors.Is(err, ErrConnection):
		return ExitConnectionError
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrWrite):
		return ExitWriteFailed
	case errors.Is(err, ErrSourceNotFound):
		return ExitSourceNotFound
	case errors.Is(err, ErrMalformedSource):
		return ExitMalformedSource
	case errors.Is(err, ErrSchemaConflict):
		return ExitSchemaConflict
	case errors.Is(err, ErrInternalInvariant):
		return ExitPanic
	}

	errStr := err.Error()
	for _, prefix := range usageErrorPrefixes {
		if strings.HasPrefix(errStr, prefix) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
