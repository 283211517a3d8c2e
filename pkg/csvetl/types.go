package csvetl

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SourceConfig describes the delimited file to extract.
type SourceConfig struct {
	// Path is the file to read.
	Path string

	// Name overrides the source identifier recorded in the Dataset.
	// Defaults to the base name of Path.
	Name string

	// Encoding is the character encoding label (utf-8, latin1, utf-16le, ...).
	Encoding string

	// Delimiter separates fields. Zero means comma.
	Delimiter rune

	// NullValues are the raw strings treated as null. Nil means DefaultNullValues.
	NullValues []string
}

// Validate checks the source configuration.
func (c *SourceConfig) Validate() error {
	var errs []error

	if c.Path == "" {
		errs = append(errs, fmt.Errorf("source path is required: %w", ErrInvalidConfig))
	}
	switch c.Delimiter {
	case '"', '\r', '\n':
		errs = append(errs, fmt.Errorf("delimiter %q is not allowed: %w", c.Delimiter, ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// TransformKind names a per-column conversion.
type TransformKind string

const (
	TransformDatetime    TransformKind = "datetime"
	TransformNumeric     TransformKind = "numeric"
	TransformInteger     TransformKind = "integer"
	TransformBoolean     TransformKind = "boolean"
	TransformCategorical TransformKind = "categorical"
	TransformUppercase   TransformKind = "uppercase"
	TransformLowercase   TransformKind = "lowercase"
	TransformTrim        TransformKind = "trim"
)

// ParseTransformKind converts a string into a TransformKind.
func ParseTransformKind(s string) (TransformKind, error) {
	k := TransformKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case TransformDatetime, TransformNumeric, TransformInteger, TransformBoolean,
		TransformCategorical, TransformUppercase, TransformLowercase, TransformTrim:
		return k, nil
	}
	return "", fmt.Errorf("unknown transform %q: %w", s, ErrInvalidConfig)
}

// ColumnTransform is the conversion applied to one column.
type ColumnTransform struct {
	Kind TransformKind

	// Format is the datetime pattern. Patterns containing '%' use strftime
	// syntax, others use Go reference-time layouts. Ignored by other kinds.
	Format string
}

// ColumnTransformSpec maps source column names to their conversions.
type ColumnTransformSpec map[string]ColumnTransform

// Strategy is the write strategy of a load.
type Strategy string

const (
	StrategyAppend  Strategy = "append"
	StrategyReplace Strategy = "replace"
	StrategyUpsert  Strategy = "upsert"
)

// IsValid returns true if the Strategy is defined.
func (s Strategy) IsValid() bool {
	return s == StrategyAppend || s == StrategyReplace || s == StrategyUpsert
}

// NullMode selects what happens to null cells after transforms.
type NullMode string

const (
	NullKeep NullMode = "keep"
	NullDrop NullMode = "drop"
	NullFill NullMode = "fill"
)

// NullPolicy is the null handling of a load.
type NullPolicy struct {
	Mode NullMode

	// FillValue replaces nulls when Mode is NullFill. It is converted to each
	// column's logical type.
	FillValue string
}

// LoadConfig describes the destination table and how rows are written.
type LoadConfig struct {
	// Table is the destination table, optionally schema-qualified.
	Table string

	Strategy Strategy

	// PrimaryKey is required for upsert. It is normalized like column names.
	PrimaryKey string

	// BatchSize is the number of rows per store call. Zero means DefaultBatchSize.
	BatchSize int

	Nulls NullPolicy

	// AddMetadata appends the _ingested_at and _source columns.
	AddMetadata bool

	// DecimalPrecision and DecimalScale size decimal columns. Zero means the defaults.
	DecimalPrecision int
	DecimalScale     int

	// StrictValues turns per-cell parse failures into ErrMalformedSource
	// instead of nulls.
	StrictValues bool
}

// WithDefaults returns a copy with zero fields replaced by their defaults.
func (c LoadConfig) WithDefaults() LoadConfig {
	if c.Strategy == "" {
		c.Strategy = StrategyAppend
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Nulls.Mode == "" {
		c.Nulls.Mode = NullKeep
	}
	if c.DecimalPrecision == 0 {
		c.DecimalPrecision = DefaultDecimalPrecision
		if c.DecimalScale == 0 {
			c.DecimalScale = DefaultDecimalScale
		}
	}
	return c
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
// Validate expects a config that has been through WithDefaults.
func (c *LoadConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Table) == "" {
		errs = append(errs, fmt.Errorf("table is required: %w", ErrInvalidConfig))
	}

	if !c.Strategy.IsValid() {
		errs = append(errs, fmt.Errorf("unknown strategy %q (expected append, replace or upsert): %w", c.Strategy, ErrInvalidConfig))
	}

	if c.Strategy == StrategyUpsert && strings.TrimSpace(c.PrimaryKey) == "" {
		errs = append(errs, fmt.Errorf("upsert requires a primary key: %w", ErrInvalidConfig))
	}

	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig))
	}

	switch c.Nulls.Mode {
	case NullKeep, NullDrop:
	case NullFill:
	default:
		errs = append(errs, fmt.Errorf("unknown null policy %q (expected keep, drop or fill): %w", c.Nulls.Mode, ErrInvalidConfig))
	}

	if c.DecimalPrecision < 1 || c.DecimalPrecision > 65 {
		errs = append(errs, fmt.Errorf("decimal precision must be between 1 and 65, got %d: %w", c.DecimalPrecision, ErrInvalidConfig))
	}
	if c.DecimalScale < 0 || c.DecimalScale > c.DecimalPrecision {
		errs = append(errs, fmt.Errorf("decimal scale must be between 0 and precision %d, got %d: %w", c.DecimalPrecision, c.DecimalScale, ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// InferredColumnType is the storage type chosen for a column.
type InferredColumnType string

const (
	ColumnShortText InferredColumnType = "short_text"
	ColumnLongText  InferredColumnType = "long_text"
	ColumnHugeText  InferredColumnType = "huge_text"
	ColumnInteger   InferredColumnType = "integer"
	ColumnDecimal   InferredColumnType = "decimal"
	ColumnDatetime  InferredColumnType = "datetime"
	ColumnBoolean   InferredColumnType = "boolean"
)

// ColumnDef is one column of a TableSchema.
type ColumnDef struct {
	Name string
	Type InferredColumnType

	// Precision and Scale are set for decimal columns only.
	Precision int
	Scale     int
}

// TableSchema is the structure a destination table is created with.
type TableSchema struct {
	Name    string
	Columns []ColumnDef

	// PrimaryKey is empty when the table has no key.
	PrimaryKey string
}

// Driver selects the relational store implementation.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
	DriverMySQL    Driver = "mysql"
)

// ParseDriver converts a driver name into a Driver. Common aliases are accepted.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "postgres", "postgresql", "pg", "pgx":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "mysql", "mariadb":
		return DriverMySQL, nil
	}
	return "", fmt.Errorf("driver %q: %w", s, ErrUnsupportedDriver)
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Driver Driver

	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Path is the database file for SQLite. ":memory:" opens a private in-memory database.
	Path string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// AWSRegion is used when AuthMethod is AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// ConnectRetries is the number of extra dial attempts on transient failures.
	ConnectRetries int
}

// Validate checks the fields each driver needs.
func (c *ConnectionConfig) Validate() error {
	var errs []error

	switch c.Driver {
	case DriverPostgres, DriverMySQL:
		if c.Host == "" && c.AuthMethod != AuthMethodGoogleIAM {
			errs = append(errs, fmt.Errorf("host is required for %s: %w", c.Driver, ErrInvalidConfig))
		}
		if c.Database == "" {
			errs = append(errs, fmt.Errorf("database is required for %s: %w", c.Driver, ErrInvalidConfig))
		}
	case DriverSQLite:
		if c.Path == "" {
			errs = append(errs, fmt.Errorf("database path is required for sqlite: %w", ErrInvalidConfig))
		}
		if c.AuthMethod != AuthMethodStandard {
			errs = append(errs, fmt.Errorf("sqlite does not support %s authentication: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
		}
	default:
		errs = append(errs, fmt.Errorf("driver %q: %w", c.Driver, ErrUnsupportedDriver))
	}

	if c.Driver == DriverMySQL && c.AuthMethod != AuthMethodStandard {
		errs = append(errs, fmt.Errorf("mysql does not support %s authentication: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
	}

	if !c.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
	}

	if c.ConnectRetries < 0 {
		errs = append(errs, fmt.Errorf("connect retries cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// RunConfig contains all parameters needed for one ETL run.
type RunConfig struct {
	Connection ConnectionConfig
	Source     SourceConfig
	Transforms ColumnTransformSpec
	Load       LoadConfig

	// Timeout bounds the whole run. Zero means no limit beyond the caller's context.
	Timeout time.Duration

	// Force skips the interactive confirmation for replace (a countdown is shown instead).
	Force bool

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks every section of the run configuration.
// It returns a multi-error if multiple validation failures occur.
func (c *RunConfig) Validate() error {
	var errs []error

	if err := c.Connection.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Source.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Load.Validate(); err != nil {
		errs = append(errs, err)
	}
	for col, t := range c.Transforms {
		if _, err := ParseTransformKind(string(t.Kind)); err != nil {
			errs = append(errs, fmt.Errorf("column %q: %w", col, err))
		}
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// RunState is a state of the run state machine.
type RunState string

const (
	StateIdle        RunState = "idle"
	StateConnected   RunState = "connected"
	StateExtracted   RunState = "extracted"
	StateTransformed RunState = "transformed"
	StateProvisioned RunState = "provisioned"
	StateLoaded      RunState = "loaded"
	StateCommitted   RunState = "committed"
	StateFailed      RunState = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s RunState) IsTerminal() bool {
	return s == StateCommitted || s == StateFailed
}

// RunResult summarizes a committed run.
type RunResult struct {
	RunID        string
	Table        string
	Strategy     Strategy
	RowsLoaded   int
	Batches      int
	TableCreated bool
	Schema       TableSchema

	// States lists every state the run passed through, in order.
	States   []RunState
	Duration time.Duration
}
