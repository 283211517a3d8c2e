package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/csvetl/internal/config"
	"github.com/vvka-141/csvetl/internal/db"
	"github.com/vvka-141/csvetl/internal/params"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection     string
	driver         string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	sqlitePath     string
	azure          bool
	azureTenantID  string
	azureClientID  string
	aws            bool
	awsRegion      string
	google         bool
	googleInstance string
	connectRetries int
	connParams     []string
}

func registerConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	// Connection string flag (mutually exclusive with granular flags)
	cmd.Flags().StringVar(&f.connection, "connection", "",
		"Connection string: postgresql://, mysql://, sqlite:// or ADO.NET form.\n"+
			"Mutually exclusive with granular flags (--host, --port, --username, --sqlite-path).\n"+
			"Alternative: CSVETL_DATABASE_URL or DATABASE_URL environment variable.")

	// Granular connection flags
	// Precedence: flag > environment variable > job file > default
	cmd.Flags().StringVar(&f.driver, "driver", "",
		"Destination driver: postgres|sqlite|mysql (default: $CSVETL_DRIVER or postgres)")
	cmd.Flags().StringVarP(&f.host, "host", "h", "",
		"Server host\n"+
			"Precedence: --host > $PGHOST > job file > localhost")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0,
		"Server port (default: $PGPORT, 5432 for postgres, 3306 for mysql)")
	cmd.Flags().StringVarP(&f.username, "username", "U", "",
		"Database user (default: $PGUSER or current OS user)")
	cmd.Flags().StringVarP(&f.database, "database", "d", "",
		"Database name (overrides the database of --connection)")
	cmd.Flags().StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")
	cmd.Flags().StringVar(&f.sqlitePath, "sqlite-path", "",
		"SQLite database file; implies --driver sqlite (default: $CSVETL_SQLITE_PATH)")
	cmd.Flags().StringSliceVar(&f.connParams, "conn-param", nil,
		"Extra PostgreSQL connection parameters as key=value pairs\n"+
			"Example: --conn-param application_name=nightly-etl")

	// Cloud IAM flags
	cmd.Flags().BoolVar(&f.aws, "aws", false,
		"Enable AWS RDS IAM authentication (uses the default AWS credential chain)")
	cmd.Flags().StringVar(&f.awsRegion, "aws-region", "",
		"AWS region (overrides $AWS_REGION)")
	cmd.Flags().BoolVar(&f.azure, "azure", false,
		"Enable Azure Entra ID authentication\n"+
			"Uses DefaultAzureCredential chain (Managed Identity, Azure CLI, etc.)")
	cmd.Flags().StringVar(&f.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	cmd.Flags().StringVar(&f.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
	cmd.Flags().BoolVar(&f.google, "google", false,
		"Enable Google Cloud SQL IAM authentication")
	cmd.Flags().StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")

	cmd.Flags().IntVar(&f.connectRetries, "connect-retries", 0,
		"Retry establishing the connection this many times on transient errors\n"+
			"Never re-runs a load stage")
}

// resolveConnectionFromFlags resolves the destination from flags, the
// environment and the job file.
func resolveConnectionFromFlags(cmd *cobra.Command, flags connectionFlags, job *config.JobConfig) (*csvetl.ConnectionConfig, error) {
	granularFlags := &db.GranularConnFlags{
		Driver:   flags.driver,
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		Database: flags.database,
		SSLMode:  flags.sslMode,
		Path:     flags.sqlitePath,
	}

	cloudFlags := &db.CloudFlags{
		AWS:            flags.aws,
		AWSRegion:      flags.awsRegion,
		Azure:          flags.azure,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
		Google:         flags.google,
		GoogleInstance: flags.googleInstance,
	}

	connConfig, err := db.ResolveConnectionParams(flags.connection, granularFlags, cloudFlags, db.LoadFromEnvironment(), &job.Connection)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("connect-retries") {
		connConfig.ConnectRetries = flags.connectRetries
	}

	extra, err := params.ParseKeyValuePairs(flags.connParams)
	if err != nil {
		return nil, fmt.Errorf("invalid --conn-param: %w", err)
	}
	if len(extra) > 0 {
		if connConfig.Driver != csvetl.DriverPostgres {
			return nil, fmt.Errorf("--conn-param is only supported for postgres, not %s: %w", connConfig.Driver, csvetl.ErrInvalidConfig)
		}
		if connConfig.AdditionalParams == nil {
			connConfig.AdditionalParams = make(map[string]string, len(extra))
		}
		for k, v := range extra {
			connConfig.AdditionalParams[k] = v
		}
	}

	return connConfig, nil
}

// loadJobConfig reads the job file named by --config. Without --config a
// csvetl.yaml in the working directory is used when present; a missing
// default file yields an empty job.
func loadJobConfig(path string) (*config.JobConfig, error) {
	explicit := path != ""
	if !explicit {
		path = "."
	}

	job, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !explicit {
			return &config.JobConfig{}, nil
		}
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("job file %s not found: %w", path, csvetl.ErrInvalidConfig)
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return job, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring the job
// file if the flag wasn't set.
func resolveEffectiveTimeout(cmd *cobra.Command, job *config.JobConfig, flagTimeout time.Duration) (time.Duration, error) {
	if job.Timeout != "" && !cmd.Flags().Changed("timeout") {
		return job.TimeoutDuration()
	}
	return flagTimeout, nil
}

// logConnectionVerbose logs connection details without secrets.
func logConnectionVerbose(logger csvetl.Logger, connConfig *csvetl.ConnectionConfig) {
	logger.Verbose("Connection resolved:")
	logger.Verbose("  Target: %s", db.Redact(connConfig))
	logger.Verbose("  Driver: %s", connConfig.Driver)
	if connConfig.Driver == csvetl.DriverPostgres {
		logger.Verbose("  SSL Mode: %s", connConfig.SSLMode)
	}
	logger.Verbose("  Auth Method: %s", connConfig.AuthMethod)
	if connConfig.ConnectRetries > 0 {
		logger.Verbose("  Connect Retries: %d", connConfig.ConnectRetries)
	}
}
