package loader

import (
	"context"
	"fmt"

	"github.com/vvka-141/csvetl/internal/transform"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// LoadResult counts what was written.
type LoadResult struct {
	Rows    int
	Batches int
}

// BatchLoader writes Dataset rows through a csvetl.Tx.
type BatchLoader struct {
	logger   csvetl.Logger
	progress csvetl.ProgressReporter
}

// NewBatchLoader creates a BatchLoader. progress may be nil.
// Panics on a nil logger.
func NewBatchLoader(logger csvetl.Logger, progress csvetl.ProgressReporter) *BatchLoader {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &BatchLoader{logger: logger, progress: progress}
}

// Load truncates the table first when the strategy is replace, then submits
// the rows in source order, one batch per InsertBatch call.
// load must have been through WithDefaults.
func (l *BatchLoader) Load(ctx context.Context, tx csvetl.Tx, ds *csvetl.Dataset, load csvetl.LoadConfig) (LoadResult, error) {
	if err := ds.Validate(); err != nil {
		return LoadResult{}, err
	}
	if load.BatchSize <= 0 {
		return LoadResult{}, fmt.Errorf("batch size must be positive, got %d: %w", load.BatchSize, csvetl.ErrInvalidConfig)
	}

	if load.Strategy == csvetl.StrategyReplace {
		if err := tx.Truncate(ctx, load.Table); err != nil {
			return LoadResult{}, fmt.Errorf("failed to truncate %s: %w: %w", load.Table, err, csvetl.ErrWrite)
		}
		l.logger.Verbose("Truncated %s", load.Table)
	}

	batches := chunk(ds.Rows, load.BatchSize)
	total := len(ds.Rows)
	upsert := load.Strategy == csvetl.StrategyUpsert
	pk := ""
	if upsert {
		pk = transform.NormalizeName(load.PrimaryKey)
	}

	var res LoadResult
	for i, rows := range batches {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("load canceled before batch %d of %d: %w", i+1, len(batches), err)
		}

		batch := csvetl.Batch{
			Table:      load.Table,
			Columns:    ds.Columns,
			Types:      ds.Types,
			Rows:       rows,
			Upsert:     upsert,
			PrimaryKey: pk,
		}
		if err := tx.InsertBatch(ctx, batch); err != nil {
			first := res.Rows + 1
			return res, fmt.Errorf("batch %d of %d (rows %d-%d): %w: %w",
				i+1, len(batches), first, res.Rows+len(rows), err, csvetl.ErrWrite)
		}

		res.Rows += len(rows)
		res.Batches++
		l.logger.Verbose("Batch %d/%d written (%d/%d rows)", i+1, len(batches), res.Rows, total)
		if l.progress != nil {
			l.progress.OnProgress(ctx, csvetl.Progress{
				Loaded:  res.Rows,
				Total:   total,
				Batch:   i + 1,
				Batches: len(batches),
			})
		}
	}

	return res, nil
}
