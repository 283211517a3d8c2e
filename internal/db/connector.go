package db

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/csvetl/internal/db/pgstore"
	"github.com/vvka-141/csvetl/internal/db/sqlstore"
	"github.com/vvka-141/csvetl/internal/logging"
	"github.com/vvka-141/csvetl/internal/retry"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns bounds the pool. A run uses one connection.
	DefaultMaxConns = 5

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps the connection alive across a long load.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
}

// ConnectorOption configures connectors built by NewConnector.
type ConnectorOption func(*connectorOptions)

type connectorOptions struct {
	logger csvetl.Logger
}

// WithLogger reports connect retries and token warnings to logger.
func WithLogger(logger csvetl.Logger) ConnectorOption {
	return func(o *connectorOptions) {
		o.logger = logger
	}
}

func buildOptions(opts []ConnectorOption) connectorOptions {
	o := connectorOptions{logger: logging.NewNullLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// newRetryExecutor retries dial and ping only. attempts of zero means a
// single try.
func newRetryExecutor(attempts int, logger csvetl.Logger) *retry.Executor {
	strategy := retry.NewExponentialBackoff(attempts,
		retry.WithInitialDelay(csvetl.DefaultRetryInitialDelay),
		retry.WithMaxDelay(csvetl.DefaultRetryMaxDelay),
	)
	return retry.NewExecutor(retry.NewDatabaseErrorClassifier(), strategy).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Info("Connect attempt %d of %d failed, retrying in %v: %v", attempt+1, attempts+1, delay.Round(time.Millisecond), err)
		})
}

// NewConnector creates the Connector for the config's driver and
// authentication method.
func NewConnector(config *csvetl.ConnectionConfig, opts ...ConnectorOption) (csvetl.Connector, error) {
	o := buildOptions(opts)

	switch config.Driver {
	case csvetl.DriverPostgres, "":
		return newPostgresConnector(config, o)
	case csvetl.DriverSQLite, csvetl.DriverMySQL:
		if config.AuthMethod != csvetl.AuthMethodStandard {
			return nil, fmt.Errorf("%s does not support %s authentication: %w", config.Driver, config.AuthMethod, csvetl.ErrUnsupportedAuthMethod)
		}
		return NewSQLConnector(config, opts...)
	default:
		return nil, fmt.Errorf("unsupported driver %q: %w", config.Driver, csvetl.ErrUnsupportedDriver)
	}
}

func newPostgresConnector(config *csvetl.ConnectionConfig, o connectorOptions) (csvetl.Connector, error) {
	switch config.AuthMethod {
	case csvetl.AuthMethodStandard:
		return NewStandardConnector(config, WithLogger(o.logger)), nil
	case csvetl.AuthMethodAWSIAM:
		return newAWSConnector(config, o)
	case csvetl.AuthMethodGoogleIAM:
		return newGoogleConnector(config)
	case csvetl.AuthMethodAzureEntraID:
		return newAzureConnector(config, o)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, csvetl.ErrUnsupportedAuthMethod)
	}
}

// StandardConnector connects to PostgreSQL with username and password.
type StandardConnector struct {
	config        *csvetl.ConnectionConfig
	retryExecutor *retry.Executor
}

// NewStandardConnector retries transient failures config.ConnectRetries times.
func NewStandardConnector(config *csvetl.ConnectionConfig, opts ...ConnectorOption) *StandardConnector {
	o := buildOptions(opts)
	return &StandardConnector{
		config:        config,
		retryExecutor: newRetryExecutor(config.ConnectRetries, o.logger),
	}
}

func (c *StandardConnector) Connect(ctx context.Context) (csvetl.Store, error) {
	pool, err := openPool(ctx, c.retryExecutor, c.config, BuildConnectionString(c.config))
	if err != nil {
		return nil, err
	}
	return pgstore.New(pool), nil
}

// openPool creates and pings a pool under the retry executor.
func openPool(ctx context.Context, executor *retry.Executor, config *csvetl.ConnectionConfig, connStr string) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := executor.Execute(ctx, func(ctx context.Context) error {
		poolConfig, err := pgxpool.ParseConfig(connStr)
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w: %w", err, csvetl.ErrInvalidConfig)
		}
		configurePool(poolConfig)

		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, config.Host, config.Port, config.Database)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return wrapConnectionError(err, config.Host, config.Port, config.Database)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// SQLConnector connects to SQLite or MySQL through database/sql.
type SQLConnector struct {
	config        *csvetl.ConnectionConfig
	dialect       sqlstore.Dialect
	retryExecutor *retry.Executor
}

func NewSQLConnector(config *csvetl.ConnectionConfig, opts ...ConnectorOption) (*SQLConnector, error) {
	dialect, err := sqlstore.ForDriver(config.Driver)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &SQLConnector{
		config:        config,
		dialect:       dialect,
		retryExecutor: newRetryExecutor(config.ConnectRetries, o.logger),
	}, nil
}

func (c *SQLConnector) Connect(ctx context.Context) (csvetl.Store, error) {
	var dsn string
	if c.config.Driver == csvetl.DriverSQLite {
		dsn = sqlstore.SQLiteDSN(c.config.Path)
	} else {
		dsn = sqlstore.MySQLDSN(c.config)
	}

	var store *sqlstore.Store
	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		s, err := sqlstore.Open(ctx, c.dialect, dsn)
		if err != nil {
			if c.config.Driver == csvetl.DriverSQLite {
				return fmt.Errorf("%w: cannot open SQLite database %q: %w", csvetl.ErrConnection, c.config.Path, err)
			}
			return wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database)
		}
		store = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// wrapConnectionError wraps raw driver connection errors with ErrConnection
// and actionable guidance.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := net.JoinHostPort(host, fmt.Sprint(port))

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`%w: connection refused to %s

Possible causes:
  - The database server is not running
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, csvetl.ErrConnection, addr, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`%w: cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable
  - Network connection issue

Original error: %w`, csvetl.ErrConnection, host, err)

	case strings.Contains(errStr, "password authentication failed") || strings.Contains(errStr, "access denied"):
		return fmt.Errorf(`%w: authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD, $MYSQL_PWD or the connection string)
  - Wrong username
  - User does not have access to the database

Original error: %w`, csvetl.ErrConnection, database, err)

	case strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "unknown database"):
		return fmt.Errorf(`%w: database "%s" does not exist

csvetl creates tables, not databases. Create it first, for example:
  createdb %s

Original error: %w`, csvetl.ErrConnection, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`%w: connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, csvetl.ErrConnection, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`%w: SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)

Original error: %w`, csvetl.ErrConnection, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`%w: too many connections to database "%s"

Possible causes:
  - max_connections limit reached on the server
  - Stale connections from previous runs

Original error: %w`, csvetl.ErrConnection, database, err)

	default:
		return fmt.Errorf("%w: failed to connect to database: %w", csvetl.ErrConnection, err)
	}
}

// newAWSConnector creates a token-based connector with the AWS IAM token provider.
func newAWSConnector(config *csvetl.ConnectionConfig, o connectorOptions) (csvetl.Connector, error) {
	endpoint := net.JoinHostPort(config.Host, fmt.Sprint(config.Port))

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, "AWS IAM", o.logger), nil
}

// newGoogleConnector creates a GoogleCloudSQLConnector for Cloud SQL IAM authentication.
func newGoogleConnector(config *csvetl.ConnectionConfig) (csvetl.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", csvetl.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U): %w", csvetl.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance), nil
}

// newAzureConnector uses Service Principal credentials when all three are
// present and the DefaultAzureCredential chain otherwise.
func newAzureConnector(config *csvetl.ConnectionConfig, o connectorOptions) (csvetl.Connector, error) {
	var tokenProvider TokenProvider
	var err error

	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(
			config.AzureTenantID,
			config.AzureClientID,
			config.AzureClientSecret,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Service Principal provider: %w", err)
		}
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Default Credential provider: %w", err)
		}
	}

	return NewTokenBasedConnector(config, tokenProvider, "Azure", o.logger), nil
}
