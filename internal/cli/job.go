package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/csvetl/internal/config"
	"github.com/vvka-141/csvetl/internal/params"
	"github.com/vvka-141/csvetl/internal/transform"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// jobFlags holds the flags that describe what to read and how to shape it.
// Each one overrides the matching field of the job file.
type jobFlags struct {
	configPath       string
	envFiles         []string
	sourceName       string
	encoding         string
	delimiter        string
	nullValues       []string
	transforms       []string
	table            string
	strategy         string
	primaryKey       string
	batchSize        int
	nulls            string
	fillValue        string
	metadata         bool
	strict           bool
	decimalPrecision int
	decimalScale     int
}

// jobSettings is the merged result of job file and flags.
type jobSettings struct {
	job        *config.JobConfig
	source     csvetl.SourceConfig
	transforms csvetl.ColumnTransformSpec
	load       csvetl.LoadConfig
}

// registerJobFlags registers the flags shared by load and inspect.
func registerJobFlags(cmd *cobra.Command, f *jobFlags) {
	cmd.Flags().StringVar(&f.configPath, "config", "",
		"Job file (csvetl.yaml) providing defaults for every setting\n"+
			"Default: ./csvetl.yaml when present")
	cmd.Flags().StringSliceVar(&f.envFiles, "env-file", nil,
		"Load environment variables from .env files (can be specified multiple times)\n"+
			"Variables already set in the environment win. Default: ./.env when present")

	// Source flags
	cmd.Flags().StringVar(&f.sourceName, "source-name", "",
		"Source identifier recorded in the _source metadata column (default: file name)")
	cmd.Flags().StringVar(&f.encoding, "encoding", "",
		"Source character encoding: utf-8|utf-16|utf-16le|utf-16be|latin1|windows-1252|...")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "",
		"Field delimiter: a single character or tab|comma|semicolon|pipe (default: comma)")
	cmd.Flags().StringSliceVar(&f.nullValues, "null-value", nil,
		"Raw value treated as null (can be specified multiple times)\n"+
			"Default: empty, NULL, null, NA, N/A, NaN, None")
	cmd.Flags().StringArrayVar(&f.transforms, "transform", nil,
		"Column conversion as column=kind[:format] (can be specified multiple times)\n"+
			"Kinds: datetime, numeric, integer, boolean, categorical, uppercase, lowercase, trim\n"+
			"Example: --transform order_date=datetime:%Y-%m-%d --transform amount=numeric")

	// Destination flags
	cmd.Flags().StringVar(&f.table, "table", "",
		"Destination table name")
	cmd.Flags().StringVar(&f.primaryKey, "primary-key", "",
		"Key column; required for upsert")
	cmd.Flags().StringVar(&f.nulls, "nulls", "",
		"Null policy: keep|drop|fill (default: keep)")
	cmd.Flags().StringVar(&f.fillValue, "fill-value", "",
		"Replacement for null cells; implies --nulls fill")
	cmd.Flags().BoolVar(&f.metadata, "metadata", false,
		"Append _loaded_at and _source columns")
	cmd.Flags().BoolVar(&f.strict, "strict", false,
		"Fail on values that do not parse instead of loading them as null")
	cmd.Flags().IntVar(&f.decimalPrecision, "decimal-precision", csvetl.DefaultDecimalPrecision,
		"Precision of decimal columns")
	cmd.Flags().IntVar(&f.decimalScale, "decimal-scale", csvetl.DefaultDecimalScale,
		"Scale of decimal columns")
}

// registerWriteFlags registers the flags that only matter when writing.
func registerWriteFlags(cmd *cobra.Command, f *jobFlags) {
	cmd.Flags().StringVar(&f.strategy, "strategy", "",
		"Write strategy: append|replace|upsert (default: append)\n"+
			"replace asks for confirmation unless --force is used")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", csvetl.DefaultBatchSize,
		"Rows per write call")
}

// buildJobSettings merges the job file with flags. Precedence for each
// field: flag > job file > default. Defaults are applied later by
// LoadConfig.WithDefaults.
func buildJobSettings(cmd *cobra.Command, f jobFlags, args []string) (*jobSettings, error) {
	if err := params.LoadEnvFiles(f.envFiles...); err != nil {
		return nil, fmt.Errorf("%w: %w", err, csvetl.ErrInvalidConfig)
	}

	job, err := loadJobConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	source, err := mergeSource(cmd, f, job, args)
	if err != nil {
		return nil, err
	}

	transforms, err := mergeTransforms(f, job)
	if err != nil {
		return nil, err
	}

	return &jobSettings{
		job:        job,
		source:     source,
		transforms: transforms,
		load:       mergeLoad(cmd, f, job),
	}, nil
}

func mergeSource(cmd *cobra.Command, f jobFlags, job *config.JobConfig, args []string) (csvetl.SourceConfig, error) {
	source, err := job.SourceSettings()
	if err != nil {
		return csvetl.SourceConfig{}, err
	}

	if len(args) > 0 {
		source.Path = args[0]
	}
	if source.Path == "" {
		return csvetl.SourceConfig{}, missingSourceError(cmd)
	}
	if f.sourceName != "" {
		source.Name = f.sourceName
	}
	if f.encoding != "" {
		source.Encoding = f.encoding
	}
	if cmd.Flags().Changed("delimiter") {
		delim, err := params.ParseDelimiter(f.delimiter)
		if err != nil {
			return csvetl.SourceConfig{}, err
		}
		source.Delimiter = delim
	}
	if cmd.Flags().Changed("null-value") {
		source.NullValues = f.nullValues
	}
	return source, nil
}

// mergeTransforms replaces job file transforms column by column. Columns
// match by normalized name, so "Order Date" in the file and order_date on
// the command line are the same column.
func mergeTransforms(f jobFlags, job *config.JobConfig) (csvetl.ColumnTransformSpec, error) {
	spec, err := job.TransformSpec()
	if err != nil {
		return nil, err
	}

	flagSpec, err := params.ParseTransforms(f.transforms)
	if err != nil {
		return nil, err
	}
	for column, tr := range flagSpec {
		n := transform.NormalizeName(column)
		for existing := range spec {
			if transform.NormalizeName(existing) == n {
				delete(spec, existing)
			}
		}
		spec[column] = tr
	}
	return spec, nil
}

func mergeLoad(cmd *cobra.Command, f jobFlags, job *config.JobConfig) csvetl.LoadConfig {
	load := job.LoadSettings()
	changed := cmd.Flags().Changed

	if f.table != "" {
		load.Table = f.table
	}
	if changed("strategy") {
		load.Strategy = csvetl.Strategy(strings.ToLower(f.strategy))
	}
	if f.primaryKey != "" {
		load.PrimaryKey = f.primaryKey
	}
	if changed("batch-size") {
		load.BatchSize = f.batchSize
	}
	if changed("nulls") {
		load.Nulls.Mode = csvetl.NullMode(strings.ToLower(f.nulls))
	}
	if changed("fill-value") {
		load.Nulls.FillValue = f.fillValue
		if !changed("nulls") {
			load.Nulls.Mode = csvetl.NullFill
		}
	}
	if changed("metadata") {
		load.AddMetadata = f.metadata
	}
	if changed("strict") {
		load.StrictValues = f.strict
	}
	if changed("decimal-precision") {
		load.DecimalPrecision = f.decimalPrecision
	}
	if changed("decimal-scale") {
		load.DecimalScale = f.decimalScale
	}
	return load
}

// defaultTableName derives a table name from the file name: "Q1 Sales.csv"
// becomes "q1_sales".
func defaultTableName(path string) string {
	base := filepath.Base(path)
	return transform.NormalizeName(strings.TrimSuffix(base, filepath.Ext(base)))
}
