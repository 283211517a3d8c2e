// Package config reads csvetl.yaml job files.
//
// A job file holds the defaults of a load: where to connect, what to read,
// how to convert it and where to write it. Command-line flags and
// environment variables override individual fields.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vvka-141/csvetl/internal/params"
	"github.com/vvka-141/csvetl/pkg/csvetl"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

const ConfigFileName = "csvetl.yaml"

type ConnectionConfig struct {
	Driver         string `yaml:"driver,omitempty"`
	URL            string `yaml:"url,omitempty"`
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Database       string `yaml:"database,omitempty"`
	SSLMode        string `yaml:"sslmode,omitempty"`
	Path           string `yaml:"path,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
	ConnectRetries int    `yaml:"connect_retries,omitempty"`
}

type SourceConfig struct {
	Path       string   `yaml:"path,omitempty"`
	Name       string   `yaml:"name,omitempty"`
	Encoding   string   `yaml:"encoding,omitempty"`
	Delimiter  string   `yaml:"delimiter,omitempty"`
	NullValues []string `yaml:"null_values,omitempty"`
}

type TransformConfig struct {
	Kind   string `yaml:"kind"`
	Format string `yaml:"format,omitempty"`
}

type LoadConfig struct {
	Table            string  `yaml:"table,omitempty"`
	Strategy         string  `yaml:"strategy,omitempty"`
	PrimaryKey       string  `yaml:"primary_key,omitempty"`
	BatchSize        int     `yaml:"batch_size,omitempty"`
	Nulls            string  `yaml:"nulls,omitempty"`
	FillValue        *string `yaml:"fill_value,omitempty"`
	Metadata         bool    `yaml:"metadata,omitempty"`
	DecimalPrecision int     `yaml:"decimal_precision,omitempty"`
	DecimalScale     int     `yaml:"decimal_scale,omitempty"`
	Strict           bool    `yaml:"strict,omitempty"`
}

// JobConfig is the top level of csvetl.yaml.
type JobConfig struct {
	Connection ConnectionConfig           `yaml:"connection"`
	Source     SourceConfig               `yaml:"source"`
	Transforms map[string]TransformConfig `yaml:"transforms"`
	Load       LoadConfig                 `yaml:"load"`
	Timeout    string                     `yaml:"timeout"`
}

// Load reads path, which may name the file itself or a directory holding
// csvetl.yaml. Relative source paths are resolved against the file's
// directory.
func Load(path string) (*JobConfig, error) {
	configPath := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		configPath = filepath.Join(path, ConfigFileName)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg JobConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", configPath, err, csvetl.ErrInvalidConfig)
	}

	if cfg.Source.Path != "" && !filepath.IsAbs(cfg.Source.Path) {
		cfg.Source.Path = filepath.Join(filepath.Dir(configPath), cfg.Source.Path)
	}
	return &cfg, nil
}

// SourceSettings converts the source section.
func (c *JobConfig) SourceSettings() (csvetl.SourceConfig, error) {
	delim, err := params.ParseDelimiter(c.Source.Delimiter)
	if err != nil {
		return csvetl.SourceConfig{}, err
	}
	return csvetl.SourceConfig{
		Path:       c.Source.Path,
		Name:       c.Source.Name,
		Encoding:   c.Source.Encoding,
		Delimiter:  delim,
		NullValues: c.Source.NullValues,
	}, nil
}

// TransformSpec converts the transforms section.
func (c *JobConfig) TransformSpec() (csvetl.ColumnTransformSpec, error) {
	spec := make(csvetl.ColumnTransformSpec, len(c.Transforms))
	for column, tr := range c.Transforms {
		kind, err := csvetl.ParseTransformKind(tr.Kind)
		if err != nil {
			return nil, fmt.Errorf("transform for column %q: %w", column, err)
		}
		spec[column] = csvetl.ColumnTransform{Kind: kind, Format: tr.Format}
	}
	return spec, nil
}

// LoadSettings converts the load section. Defaults are not applied.
func (c *JobConfig) LoadSettings() csvetl.LoadConfig {
	l := c.Load
	cfg := csvetl.LoadConfig{
		Table:            l.Table,
		Strategy:         csvetl.Strategy(l.Strategy),
		PrimaryKey:       l.PrimaryKey,
		BatchSize:        l.BatchSize,
		Nulls:            csvetl.NullPolicy{Mode: csvetl.NullMode(l.Nulls)},
		AddMetadata:      l.Metadata,
		DecimalPrecision: l.DecimalPrecision,
		DecimalScale:     l.DecimalScale,
		StrictValues:     l.Strict,
	}
	if l.FillValue != nil {
		cfg.Nulls.FillValue = *l.FillValue
		if cfg.Nulls.Mode == "" {
			cfg.Nulls.Mode = csvetl.NullFill
		}
	}
	return cfg
}

// TimeoutDuration parses the timeout field. Empty means zero.
func (c *JobConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, csvetl.ErrInvalidConfig)
	}
	return d, nil
}
