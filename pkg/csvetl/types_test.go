package csvetl_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

func TestLoadConfig_WithDefaults(t *testing.T) {
	cfg := csvetl.LoadConfig{Table: "sales"}.WithDefaults()

	assert.Equal(t, csvetl.StrategyAppend, cfg.Strategy)
	assert.Equal(t, csvetl.DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, csvetl.NullKeep, cfg.Nulls.Mode)
	assert.Equal(t, 10, cfg.DecimalPrecision)
	assert.Equal(t, 2, cfg.DecimalScale)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Validate(t *testing.T) {
	valid := csvetl.LoadConfig{Table: "sales"}.WithDefaults()

	tests := []struct {
		name   string
		mutate func(c *csvetl.LoadConfig)
		errs   int
	}{
		{"valid", func(c *csvetl.LoadConfig) {}, 0},
		{"missing table", func(c *csvetl.LoadConfig) { c.Table = "  " }, 1},
		{"unknown strategy", func(c *csvetl.LoadConfig) { c.Strategy = "merge" }, 1},
		{"upsert without key", func(c *csvetl.LoadConfig) { c.Strategy = csvetl.StrategyUpsert }, 1},
		{"upsert with key", func(c *csvetl.LoadConfig) { c.Strategy = csvetl.StrategyUpsert; c.PrimaryKey = "id" }, 0},
		{"negative batch", func(c *csvetl.LoadConfig) { c.BatchSize = -1 }, 1},
		{"unknown null mode", func(c *csvetl.LoadConfig) { c.Nulls.Mode = "ignore" }, 1},
		{"scale above precision", func(c *csvetl.LoadConfig) { c.DecimalPrecision = 4; c.DecimalScale = 5 }, 1},
		{"everything wrong", func(c *csvetl.LoadConfig) {
			c.Table = ""
			c.Strategy = csvetl.StrategyUpsert
			c.BatchSize = -5
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errs == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, csvetl.ErrInvalidConfig))
			joined, ok := err.(interface{ Unwrap() []error })
			require.True(t, ok, "expected a joined error")
			assert.Len(t, joined.Unwrap(), tt.errs)
		})
	}
}

func TestConnectionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  csvetl.ConnectionConfig
		wantErr error
	}{
		{"postgres ok", csvetl.ConnectionConfig{Driver: csvetl.DriverPostgres, Host: "localhost", Database: "etl"}, nil},
		{"postgres without host", csvetl.ConnectionConfig{Driver: csvetl.DriverPostgres, Database: "etl"}, csvetl.ErrInvalidConfig},
		{"google without host", csvetl.ConnectionConfig{Driver: csvetl.DriverPostgres, Database: "etl", AuthMethod: csvetl.AuthMethodGoogleIAM}, nil},
		{"sqlite ok", csvetl.ConnectionConfig{Driver: csvetl.DriverSQLite, Path: ":memory:"}, nil},
		{"sqlite without path", csvetl.ConnectionConfig{Driver: csvetl.DriverSQLite}, csvetl.ErrInvalidConfig},
		{"sqlite with aws", csvetl.ConnectionConfig{Driver: csvetl.DriverSQLite, Path: "x.db", AuthMethod: csvetl.AuthMethodAWSIAM}, csvetl.ErrUnsupportedAuthMethod},
		{"mysql with azure", csvetl.ConnectionConfig{Driver: csvetl.DriverMySQL, Host: "h", Database: "d", AuthMethod: csvetl.AuthMethodAzureEntraID}, csvetl.ErrUnsupportedAuthMethod},
		{"unknown driver", csvetl.ConnectionConfig{Driver: "oracle"}, csvetl.ErrUnsupportedDriver},
		{"negative retries", csvetl.ConnectionConfig{Driver: csvetl.DriverSQLite, Path: "x.db", ConnectRetries: -1}, csvetl.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRunConfig_Validate(t *testing.T) {
	cfg := csvetl.RunConfig{
		Connection: csvetl.ConnectionConfig{Driver: csvetl.DriverSQLite, Path: ":memory:"},
		Source:     csvetl.SourceConfig{Path: "data.csv"},
		Transforms: csvetl.ColumnTransformSpec{"amount": {Kind: csvetl.TransformNumeric}},
		Load:       csvetl.LoadConfig{Table: "t"}.WithDefaults(),
	}
	require.NoError(t, cfg.Validate())

	cfg.Transforms["when"] = csvetl.ColumnTransform{Kind: "soundex"}
	cfg.Timeout = -time.Second
	cfg.Source.Path = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, csvetl.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "soundex")
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "source path")
}

func TestParseDriver(t *testing.T) {
	tests := map[string]csvetl.Driver{
		"":           csvetl.DriverPostgres,
		"postgresql": csvetl.DriverPostgres,
		"SQLite3":    csvetl.DriverSQLite,
		"mariadb":    csvetl.DriverMySQL,
	}
	for in, want := range tests {
		got, err := csvetl.ParseDriver(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := csvetl.ParseDriver("mssql")
	assert.ErrorIs(t, err, csvetl.ErrUnsupportedDriver)
}

func TestParseTransformKind(t *testing.T) {
	k, err := csvetl.ParseTransformKind(" Numeric ")
	require.NoError(t, err)
	assert.Equal(t, csvetl.TransformNumeric, k)

	_, err = csvetl.ParseTransformKind("reverse")
	assert.ErrorIs(t, err, csvetl.ErrInvalidConfig)
}

func TestAuthMethod_String(t *testing.T) {
	assert.Equal(t, "AWS IAM", csvetl.AuthMethodAWSIAM.String())
	assert.Equal(t, "Unknown(99)", csvetl.AuthMethod(99).String())
	assert.False(t, csvetl.AuthMethod(99).IsValid())
}

func TestRunState_IsTerminal(t *testing.T) {
	assert.True(t, csvetl.StateCommitted.IsTerminal())
	assert.True(t, csvetl.StateFailed.IsTerminal())
	assert.False(t, csvetl.StateLoaded.IsTerminal())
}
