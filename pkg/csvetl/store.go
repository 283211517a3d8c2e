package csvetl

import "context"

// Connector is a unified interface for establishing store connections.
// Different implementations handle the drivers and authentication methods
// (standard credentials, cloud IAM, embedded files).
type Connector interface {
	// Connect opens and pings the store.
	// The returned Store should be closed by the caller when done.
	Connect(ctx context.Context) (Store, error)
}

// Store is a connected relational database.
//
// Thread-Safety: a Store belongs to one run and is not shared.
type Store interface {
	// Begin starts the single transaction of a run.
	Begin(ctx context.Context) (Tx, error)

	// Driver reports the dialect behind the store.
	Driver() Driver

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Tx is an open store transaction. Nothing it writes is visible to other
// sessions until Commit.
type Tx interface {
	// TableExists reports whether the table is present.
	TableExists(ctx context.Context, table string) (bool, error)

	// CreateTable issues the DDL for the schema.
	CreateTable(ctx context.Context, schema TableSchema) error

	// Truncate removes every row of the table.
	Truncate(ctx context.Context, table string) error

	// InsertBatch writes one batch of rows.
	InsertBatch(ctx context.Context, batch Batch) error

	Commit(ctx context.Context) error

	// Rollback aborts the transaction. Calling it after Commit is a no-op.
	Rollback(ctx context.Context) error
}

// Batch is one InsertBatch call.
type Batch struct {
	Table   string
	Columns []string
	Types   []LogicalType
	Rows    [][]Value

	// Upsert makes rows that collide on PrimaryKey overwrite every non-key column.
	Upsert     bool
	PrimaryKey string
}

// Runner executes ETL runs.
type Runner interface {
	// Run extracts, transforms, provisions and loads in one transaction.
	// On failure the returned error is a *StageError and the destination is unchanged.
	Run(ctx context.Context, config RunConfig) (*RunResult, error)
}
