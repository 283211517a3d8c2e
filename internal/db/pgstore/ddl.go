package pgstore

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// ColumnType maps an inferred column to its PostgreSQL type.
func ColumnType(def csvetl.ColumnDef) string {
	switch def.Type {
	case csvetl.ColumnShortText:
		return fmt.Sprintf("VARCHAR(%d)", csvetl.ShortTextMaxLength)
	case csvetl.ColumnLongText:
		return fmt.Sprintf("VARCHAR(%d)", csvetl.LongTextMaxLength)
	case csvetl.ColumnInteger:
		return "BIGINT"
	case csvetl.ColumnDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", def.Precision, def.Scale)
	case csvetl.ColumnDatetime:
		return "TIMESTAMP"
	case csvetl.ColumnBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders the CREATE TABLE statement for schema.
func CreateTableSQL(schema csvetl.TableSchema) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(quoteTable(schema.Name))
	sb.WriteString(" (\n")
	for i, col := range schema.Columns {
		if i > 0 {
			sb.WriteString(",\n")
		}
		sb.WriteString("    ")
		sb.WriteString(pgx.Identifier{col.Name}.Sanitize())
		sb.WriteString(" ")
		sb.WriteString(ColumnType(col))
	}
	if schema.PrimaryKey != "" {
		sb.WriteString(",\n    PRIMARY KEY (")
		sb.WriteString(pgx.Identifier{schema.PrimaryKey}.Sanitize())
		sb.WriteString(")")
	}
	sb.WriteString("\n)")
	return sb.String()
}

// UpsertSQL renders the parameterised INSERT ... ON CONFLICT statement
// used for one row of an upsert batch.
func UpsertSQL(table string, columns []string, primaryKey string) string {
	quoted := quoteColumns(columns)
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	pk := pgx.Identifier{primaryKey}.Sanitize()
	var updates []string
	for i, col := range columns {
		if col == primaryKey {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quoted[i], quoted[i]))
	}

	action := "DO NOTHING"
	if len(updates) > 0 {
		action = "DO UPDATE SET " + strings.Join(updates, ", ")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		quoteTable(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "), pk, action)
}

// tableIdentifier splits an optionally schema-qualified table name.
func tableIdentifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

func quoteTable(table string) string {
	return tableIdentifier(table).Sanitize()
}

func quoteColumns(columns []string) []string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return quoted
}
