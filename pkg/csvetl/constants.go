package csvetl

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Run committed
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic or invariant violation
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Failed to connect to the store
	ExitApprovalDenied  = 12 // User denied replace approval
	ExitWriteFailed     = 13 // Provisioning or load failed, rolled back
	ExitSourceNotFound  = 14 // Source file missing
	ExitMalformedSource = 15 // Source could not be parsed
	ExitSchemaConflict  = 16 // Column collision or missing primary-key column
)

const (
	// DefaultBatchSize is the number of rows submitted per store write call.
	DefaultBatchSize = 1000

	// DefaultDecimalPrecision and DefaultDecimalScale size decimal columns.
	DefaultDecimalPrecision = 10
	DefaultDecimalScale     = 2

	// ShortTextMaxLength is the longest value that still infers to short_text.
	ShortTextMaxLength = 255

	// LongTextMaxLength is the longest value that still infers to long_text.
	LongTextMaxLength = 65535

	// DefaultDelimiter separates fields in the source.
	DefaultDelimiter = ','

	// DefaultEncoding is the source character encoding.
	DefaultEncoding = "utf-8"

	// DefaultTimeout bounds a whole run from the CLI.
	DefaultTimeout = 30 * time.Minute

	// DefaultForceApprovalCountdown is the countdown duration before a forced replace proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first connect retry.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between connect retries.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultConnectRetries is the number of connect retries. Zero disables them.
	DefaultConnectRetries = 0

	// DefaultManagementDB is the default PostgreSQL database.
	DefaultManagementDB = "postgres"

	// MetadataTimestampColumn holds the ingestion timestamp when metadata is requested.
	MetadataTimestampColumn = "_ingested_at"

	// MetadataSourceColumn holds the source identifier when metadata is requested.
	MetadataSourceColumn = "_source"
)

// DefaultNullValues are the raw strings recognized as null when none are configured.
var DefaultNullValues = []string{"", "NULL", "N/A"}
