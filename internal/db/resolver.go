package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vvka-141/csvetl/internal/config"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// GranularConnFlags holds connection parameters given as individual CLI
// flags (-h, -p, -U, -d, --sslmode, --driver, --sqlite-path).
//
// Password is NOT a CLI flag. Use $PGPASSWORD, $MYSQL_PWD or a connection
// string instead.
type GranularConnFlags struct {
	Driver   string
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
	Path     string
}

// IsEmpty reports whether no flag that conflicts with a connection string
// was given. Driver and Database are excluded: -d may override the
// database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == "" && g.Path == ""
}

// CloudFlags selects cloud IAM authentication for PostgreSQL.
// Secrets are NOT flags; AZURE_CLIENT_SECRET comes from the environment.
type CloudFlags struct {
	AWS       bool
	AWSRegion string

	Azure         bool
	AzureTenantID string
	AzureClientID string

	Google         bool
	GoogleInstance string
}

// EnvVars are the environment variables consulted during resolution.
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	MYSQL_PWD    string
	DATABASE_URL string

	CSVETL_DATABASE_URL string
	CSVETL_DRIVER       string
	CSVETL_SQLITE_PATH  string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string

	AWS_REGION         string
	AWS_DEFAULT_REGION string
}

// LoadFromEnvironment reads EnvVars from the process environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		MYSQL_PWD:           os.Getenv("MYSQL_PWD"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		CSVETL_DATABASE_URL: os.Getenv("CSVETL_DATABASE_URL"),
		CSVETL_DRIVER:       os.Getenv("CSVETL_DRIVER"),
		CSVETL_SQLITE_PATH:  os.Getenv("CSVETL_SQLITE_PATH"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AWS_DEFAULT_REGION:  os.Getenv("AWS_DEFAULT_REGION"),
	}
}

// HasAzureCredentials returns true if Azure Entra ID variables are set.
func (e *EnvVars) HasAzureCredentials() bool {
	return e.AZURE_TENANT_ID != "" || e.AZURE_CLIENT_ID != ""
}

func (e *EnvVars) databaseURL() string {
	if e.CSVETL_DATABASE_URL != "" {
		return e.CSVETL_DATABASE_URL
	}
	return e.DATABASE_URL
}

// ResolveConnectionParams resolves the connection with this precedence:
//
//  1. --connection string
//  2. granular flags, each falling back to its environment variable and
//     then to the job file
//  3. $CSVETL_DATABASE_URL or $DATABASE_URL when no granular flag is set
//  4. the job file's connection url
//  5. defaults (PostgreSQL on localhost:5432)
//
// Giving both --connection and granular flags is an error.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	cloudFlags *CloudFlags,
	envVars *EnvVars,
	projectConfig *config.ConnectionConfig,
) (*csvetl.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if cloudFlags == nil {
		cloudFlags = &CloudFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	if projectConfig == nil {
		projectConfig = &config.ConnectionConfig{}
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U, --sslmode, --sqlite-path)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://user@localhost:5432/etl\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U loader -d etl\n"+
				"  3. Environment variables: export PGHOST=localhost PGUSER=loader: %w",
			csvetl.ErrInvalidConfig,
		)
	}

	var cfg *csvetl.ConnectionConfig
	var err error

	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, envVars)
	case granularFlags.IsEmpty() && granularFlags.Driver == "" && envVars.databaseURL() != "":
		cfg, err = resolveFromConnectionString(envVars.databaseURL(), envVars)
	case granularFlags.IsEmpty() && granularFlags.Driver == "" && projectConfig.URL != "":
		cfg, err = resolveFromConnectionString(projectConfig.URL, envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, projectConfig)
	}
	if err != nil {
		return nil, err
	}

	if granularFlags.Database != "" && cfg.Driver != csvetl.DriverSQLite {
		cfg.Database = granularFlags.Database
	}
	cfg.ConnectRetries = projectConfig.ConnectRetries

	if err := applyCloudAuth(cfg, cloudFlags, envVars, projectConfig); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveFromConnectionString parses connStr and fills the password and
// SSL mode from the environment when the string omits them.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*csvetl.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	switch cfg.Driver {
	case csvetl.DriverPostgres:
		if cfg.SSLMode == "" {
			cfg.SSLMode = envVars.PGSSLMODE
		}
		if cfg.SSLMode == "" {
			cfg.SSLMode = "prefer"
		}
		if cfg.Password == "" {
			cfg.Password = envVars.PGPASSWORD
		}
	case csvetl.DriverMySQL:
		if cfg.Password == "" {
			cfg.Password = envVars.MYSQL_PWD
		}
	}
	return cfg, nil
}

// resolveFromGranularParams builds the config field by field.
// Precedence for each field: CLI flag > environment variable > job file > default.
func resolveFromGranularParams(
	flags *GranularConnFlags,
	envVars *EnvVars,
	pc *config.ConnectionConfig,
) (*csvetl.ConnectionConfig, error) {
	driverName := firstNonEmpty(flags.Driver, envVars.CSVETL_DRIVER, pc.Driver)
	if driverName == "" && firstNonEmpty(flags.Path, envVars.CSVETL_SQLITE_PATH, pc.Path) != "" {
		driverName = string(csvetl.DriverSQLite)
	}
	driver, err := csvetl.ParseDriver(driverName)
	if err != nil {
		return nil, err
	}

	cfg := &csvetl.ConnectionConfig{
		Driver:           driver,
		AuthMethod:       csvetl.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	if driver == csvetl.DriverSQLite {
		cfg.Path = firstNonEmpty(flags.Path, envVars.CSVETL_SQLITE_PATH, pc.Path)
		return cfg, nil
	}

	isPostgres := driver == csvetl.DriverPostgres
	pgEnv := func(v string) string {
		if isPostgres {
			return v
		}
		return ""
	}

	cfg.Host = firstNonEmpty(flags.Host, pgEnv(envVars.PGHOST), pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case isPostgres && envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", envVars.PGPORT, csvetl.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	case isPostgres:
		cfg.Port = 5432
	default:
		cfg.Port = 3306
	}

	cfg.Username = firstNonEmpty(flags.Username, pgEnv(envVars.PGUSER), pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Database = firstNonEmpty(flags.Database, pgEnv(envVars.PGDATABASE), pc.Database)

	if isPostgres {
		cfg.Password = envVars.PGPASSWORD
		cfg.SSLMode = firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer")
	} else {
		cfg.Password = envVars.MYSQL_PWD
		cfg.SSLMode = firstNonEmpty(flags.SSLMode, pc.SSLMode)
	}

	return cfg, nil
}

// applyCloudAuth selects the IAM method. Flags win over the job file; Azure
// environment credentials switch a PostgreSQL connection to Entra ID when
// nothing else was chosen.
func applyCloudAuth(cfg *csvetl.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc *config.ConnectionConfig) error {
	var chosen []csvetl.AuthMethod
	if flags.AWS {
		chosen = append(chosen, csvetl.AuthMethodAWSIAM)
	}
	if flags.Azure {
		chosen = append(chosen, csvetl.AuthMethodAzureEntraID)
	}
	if flags.Google {
		chosen = append(chosen, csvetl.AuthMethodGoogleIAM)
	}
	if len(chosen) > 1 {
		return fmt.Errorf("choose at most one of --aws, --azure and --google: %w", csvetl.ErrInvalidConfig)
	}

	method := csvetl.AuthMethodStandard
	switch {
	case len(chosen) == 1:
		method = chosen[0]
	case pc.AuthMethod != "":
		m, err := ParseAuthMethod(pc.AuthMethod)
		if err != nil {
			return err
		}
		method = m
	case cfg.Driver == csvetl.DriverPostgres && (flags.AzureTenantID != "" || flags.AzureClientID != "" || env.HasAzureCredentials()):
		method = csvetl.AuthMethodAzureEntraID
	}
	cfg.AuthMethod = method

	switch method {
	case csvetl.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, env.AWS_DEFAULT_REGION, pc.AWSRegion)
	case csvetl.AuthMethodAzureEntraID:
		cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case csvetl.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	}
	return nil
}

// ParseAuthMethod accepts standard, aws, azure and google with common aliases.
func ParseAuthMethod(s string) (csvetl.AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return csvetl.AuthMethodStandard, nil
	case "aws", "aws-iam", "aws_iam":
		return csvetl.AuthMethodAWSIAM, nil
	case "azure", "entra", "azure-entra-id", "azure_entra_id":
		return csvetl.AuthMethodAzureEntraID, nil
	case "google", "gcp", "google-iam", "google_iam", "cloudsql":
		return csvetl.AuthMethodGoogleIAM, nil
	}
	return csvetl.AuthMethodStandard, fmt.Errorf("unknown auth method %q: %w", s, csvetl.ErrUnsupportedAuthMethod)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
