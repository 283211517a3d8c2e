package schema

import (
	"fmt"
	"unicode/utf8"

	"github.com/vvka-141/csvetl/internal/transform"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// Infer derives the table schema for ds. load must have been through WithDefaults.
func Infer(ds *csvetl.Dataset, load csvetl.LoadConfig) (csvetl.TableSchema, error) {
	if err := ds.Validate(); err != nil {
		return csvetl.TableSchema{}, err
	}

	schema := csvetl.TableSchema{
		Name:    load.Table,
		Columns: make([]csvetl.ColumnDef, len(ds.Columns)),
	}

	for i, name := range ds.Columns {
		def := csvetl.ColumnDef{Name: name}
		switch ds.Types[i] {
		case csvetl.LogicalDecimal:
			def.Type = csvetl.ColumnDecimal
			def.Precision = load.DecimalPrecision
			def.Scale = load.DecimalScale
		case csvetl.LogicalInteger:
			def.Type = csvetl.ColumnInteger
		case csvetl.LogicalDatetime:
			def.Type = csvetl.ColumnDatetime
		case csvetl.LogicalBoolean:
			def.Type = csvetl.ColumnBoolean
		default:
			def.Type = TextColumnType(maxTextLength(ds, i))
		}
		schema.Columns[i] = def
	}

	if load.PrimaryKey != "" {
		pk := transform.NormalizeName(load.PrimaryKey)
		if ds.ColumnIndex(pk) < 0 {
			return csvetl.TableSchema{}, fmt.Errorf("primary key %q is not a column of the dataset: %w", load.PrimaryKey, csvetl.ErrSchemaConflict)
		}
		schema.PrimaryKey = pk
	}

	return schema, nil
}

// TextColumnType sizes a text column by its longest value in characters.
func TextColumnType(maxLen int) csvetl.InferredColumnType {
	switch {
	case maxLen <= csvetl.ShortTextMaxLength:
		return csvetl.ColumnShortText
	case maxLen <= csvetl.LongTextMaxLength:
		return csvetl.ColumnLongText
	default:
		return csvetl.ColumnHugeText
	}
}

func maxTextLength(ds *csvetl.Dataset, col int) int {
	longest := 0
	for _, row := range ds.Rows {
		v := row[col]
		if v.IsNull() {
			continue
		}
		if n := utf8.RuneCountInString(v.String()); n > longest {
			longest = n
		}
	}
	return longest
}
