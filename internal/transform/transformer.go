package transform

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// cancelCheckInterval is how many rows are converted between context checks.
const cancelCheckInterval = 4096

// Option configures a Transformer.
type Option func(*Transformer)

// WithClock sets the clock that stamps the _ingested_at metadata column.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		t.now = now
	}
}

// Transformer produces a normalized, typed Dataset from an extracted one.
// It never modifies its input.
type Transformer struct {
	logger csvetl.Logger
	now    func() time.Time
}

// NewTransformer creates a Transformer. Panics on a nil logger.
func NewTransformer(logger csvetl.Logger, opts ...Option) *Transformer {
	if logger == nil {
		panic("logger cannot be nil")
	}
	t := &Transformer{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform normalizes column names, converts the columns named in specs,
// applies the null policy of load and appends metadata columns if requested.
func (t *Transformer) Transform(ctx context.Context, ds *csvetl.Dataset, specs csvetl.ColumnTransformSpec, load csvetl.LoadConfig) (*csvetl.Dataset, error) {
	ingestedAt := t.now().UTC()

	if err := ds.Validate(); err != nil {
		return nil, err
	}

	names, err := normalizeColumns(ds.Columns)
	if err != nil {
		return nil, err
	}

	columns, err := resolveColumns(names, specs)
	if err != nil {
		return nil, err
	}

	nullTokens := make(map[string]struct{}, len(ds.NullTokens))
	for _, tok := range ds.NullTokens {
		nullTokens[tok] = struct{}{}
	}

	rows := make([][]csvetl.Value, 0, len(ds.Rows))
	for r, in := range ds.Rows {
		if r%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		out := make([]csvetl.Value, len(in))
		for c, cell := range in {
			out[c], err = convertCell(cell, columns[c], nullTokens)
			if err != nil {
				if !load.StrictValues {
					out[c] = csvetl.Null()
					continue
				}
				return nil, fmt.Errorf("row %d, column %q: %v: %w", r+1, names[c], err, csvetl.ErrMalformedSource)
			}
		}
		rows = append(rows, out)
	}

	rows, err = applyNullPolicy(rows, names, columns, load.Nulls)
	if err != nil {
		return nil, err
	}

	types := make([]csvetl.LogicalType, len(columns))
	for i, col := range columns {
		types[i] = col.logical
	}

	if load.AddMetadata {
		names, types, rows, err = appendMetadata(names, types, rows, ingestedAt, ds.Source)
		if err != nil {
			return nil, err
		}
	}

	out, err := csvetl.NewDataset(names, types, rows)
	if err != nil {
		return nil, err
	}
	out.Source = ds.Source
	out.NullTokens = append([]string(nil), ds.NullTokens...)

	t.logger.Verbose("Transformed %d rows (%d in), %d columns, %d transforms", len(rows), len(ds.Rows), len(names), len(specs))
	return out, nil
}

// errUnparseable marks a cell whose text does not parse as the column type.
type errUnparseable struct {
	raw     string
	logical csvetl.LogicalType
}

func (e errUnparseable) Error() string {
	return fmt.Sprintf("cannot parse %q as %s", e.raw, e.logical)
}

func convertCell(cell csvetl.Value, col column, nullTokens map[string]struct{}) (csvetl.Value, error) {
	raw, isText := cell.AsText()
	if !isText {
		// Already typed (or null): pass through.
		return cell, nil
	}
	if _, isNull := nullTokens[raw]; isNull {
		return csvetl.Null(), nil
	}
	v, ok := col.convert(raw)
	if !ok {
		return csvetl.Null(), errUnparseable{raw: raw, logical: col.logical}
	}
	return v, nil
}

// normalizeColumns normalizes every header and rejects collisions.
func normalizeColumns(headers []string) ([]string, error) {
	names := make([]string, len(headers))
	origin := make(map[string]string, len(headers))
	for i, h := range headers {
		n := NormalizeName(h)
		if n == "" {
			return nil, fmt.Errorf("column %d has an empty name: %w", i+1, csvetl.ErrSchemaConflict)
		}
		if prev, dup := origin[n]; dup {
			return nil, fmt.Errorf("columns %q and %q both normalize to %q: %w", prev, h, n, csvetl.ErrSchemaConflict)
		}
		origin[n] = h
		names[i] = n
	}
	return names, nil
}

// resolveColumns builds one column descriptor per name. Spec keys are
// normalized like headers; keys naming no column are reported together.
func resolveColumns(names []string, specs csvetl.ColumnTransformSpec) ([]column, error) {
	byName := make(map[string]csvetl.ColumnTransform, len(specs))
	var unknown []string
	for key, spec := range specs {
		n := NormalizeName(key)
		if _, dup := byName[n]; dup {
			return nil, fmt.Errorf("transform for %q is given more than once: %w", n, csvetl.ErrInvalidConfig)
		}
		byName[n] = spec
	}

	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}
	for n := range byName {
		if _, ok := present[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("transforms reference unknown columns: %s: %w", strings.Join(unknown, ", "), csvetl.ErrInvalidConfig)
	}

	columns := make([]column, len(names))
	for i, n := range names {
		spec, ok := byName[n]
		if !ok {
			columns[i] = column{logical: csvetl.LogicalText, convert: identity}
			continue
		}
		col, err := newColumn(n, spec)
		if err != nil {
			return nil, err
		}
		columns[i] = col
	}
	return columns, nil
}

func applyNullPolicy(rows [][]csvetl.Value, names []string, columns []column, policy csvetl.NullPolicy) ([][]csvetl.Value, error) {
	switch policy.Mode {
	case csvetl.NullDrop:
		kept := rows[:0:0]
		for _, row := range rows {
			if !hasNull(row) {
				kept = append(kept, row)
			}
		}
		return kept, nil

	case csvetl.NullFill:
		fills := make([]*csvetl.Value, len(columns))
		for _, row := range rows {
			for c := range row {
				if !row[c].IsNull() {
					continue
				}
				if fills[c] == nil {
					v, ok := columns[c].convert(policy.FillValue)
					if !ok {
						return nil, fmt.Errorf("fill value %q is not a valid %s for column %q: %w", policy.FillValue, columns[c].logical, names[c], csvetl.ErrInvalidConfig)
					}
					fills[c] = &v
				}
				row[c] = *fills[c]
			}
		}
		return rows, nil
	}

	return rows, nil
}

func hasNull(row []csvetl.Value) bool {
	for _, v := range row {
		if v.IsNull() {
			return true
		}
	}
	return false
}

func appendMetadata(names []string, types []csvetl.LogicalType, rows [][]csvetl.Value, ingestedAt time.Time, source string) ([]string, []csvetl.LogicalType, [][]csvetl.Value, error) {
	for _, n := range names {
		if n == csvetl.MetadataTimestampColumn || n == csvetl.MetadataSourceColumn {
			return nil, nil, nil, fmt.Errorf("metadata column %q already exists in the source: %w", n, csvetl.ErrSchemaConflict)
		}
	}

	names = append(names, csvetl.MetadataTimestampColumn, csvetl.MetadataSourceColumn)
	types = append(types, csvetl.LogicalDatetime, csvetl.LogicalText)
	stamp := csvetl.Time(ingestedAt)
	src := csvetl.Text(source)
	for i := range rows {
		rows[i] = append(rows[i], stamp, src)
	}
	return names, types, rows, nil
}
