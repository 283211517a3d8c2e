package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

const fullJob = `connection:
  driver: postgres
  host: myhost
  port: 5433
  username: loader
  database: warehouse
  sslmode: require
  connect_retries: 2

source:
  path: data/sales.csv
  encoding: latin1
  delimiter: ";"
  null_values: ["", "-"]

transforms:
  amount:
    kind: numeric
  sold_at:
    kind: datetime
    format: "%d/%m/%Y"

load:
  table: sales
  strategy: upsert
  primary_key: id
  batch_size: 500
  fill_value: "0"
  metadata: true
  strict: true

timeout: 10m
`

func writeJob(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))
	return dir
}

func TestLoad_AllFields(t *testing.T) {
	dir := writeJob(t, fullJob)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Connection.Driver)
	assert.Equal(t, "myhost", cfg.Connection.Host)
	assert.Equal(t, 5433, cfg.Connection.Port)
	assert.Equal(t, "warehouse", cfg.Connection.Database)
	assert.Equal(t, 2, cfg.Connection.ConnectRetries)
	assert.Equal(t, filepath.Join(dir, "data", "sales.csv"), cfg.Source.Path)

	src, err := cfg.SourceSettings()
	require.NoError(t, err)
	assert.Equal(t, ';', src.Delimiter)
	assert.Equal(t, "latin1", src.Encoding)
	assert.Equal(t, []string{"", "-"}, src.NullValues)

	spec, err := cfg.TransformSpec()
	require.NoError(t, err)
	assert.Equal(t, csvetl.ColumnTransform{Kind: csvetl.TransformDatetime, Format: "%d/%m/%Y"}, spec["sold_at"])
	assert.Equal(t, csvetl.TransformNumeric, spec["amount"].Kind)

	load := cfg.LoadSettings()
	assert.Equal(t, "sales", load.Table)
	assert.Equal(t, csvetl.StrategyUpsert, load.Strategy)
	assert.Equal(t, 500, load.BatchSize)
	assert.Equal(t, csvetl.NullPolicy{Mode: csvetl.NullFill, FillValue: "0"}, load.Nulls)
	assert.True(t, load.AddMetadata)
	assert.True(t, load.StrictValues)

	timeout, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, timeout)
}

func TestLoad_ExplicitFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nightly.yaml")
	require.NoError(t, os.WriteFile(path, []byte("load:\n  table: t\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "t", cfg.Load.Table)
}

func TestLoad_Minimal(t *testing.T) {
	cfg, err := Load(writeJob(t, "connection:\n  driver: sqlite\n  path: etl.db\n"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Connection.Driver)
	assert.Empty(t, cfg.Source.Path)
	assert.Empty(t, cfg.Transforms)

	load := cfg.LoadSettings()
	assert.Equal(t, csvetl.NullMode(""), load.Nulls.Mode, "defaults are applied later")

	timeout, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Zero(t, timeout)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeJob(t, "connection: [broken"))
	require.Error(t, err)
	assert.ErrorIs(t, err, csvetl.ErrInvalidConfig)
}

func TestJobConfig_InvalidValues(t *testing.T) {
	cfg := &JobConfig{
		Source:     SourceConfig{Delimiter: "ab"},
		Transforms: map[string]TransformConfig{"x": {Kind: "money"}},
		Timeout:    "soon",
	}

	_, err := cfg.SourceSettings()
	assert.ErrorIs(t, err, csvetl.ErrInvalidConfig)

	_, err = cfg.TransformSpec()
	assert.ErrorIs(t, err, csvetl.ErrInvalidConfig)

	_, err = cfg.TimeoutDuration()
	assert.ErrorIs(t, err, csvetl.ErrInvalidConfig)
}
