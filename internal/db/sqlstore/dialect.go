package sqlstore

import (
	"fmt"
	"strings"

	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// Dialect renders the SQL that differs between engines.
type Dialect interface {
	Driver() csvetl.Driver

	// DriverName is the database/sql driver registration name.
	DriverName() string

	Quote(identifier string) string
	ColumnType(def csvetl.ColumnDef) string

	// TableExistsQuery takes the table name as its only parameter and
	// returns a count.
	TableExistsQuery() string

	UpsertSQL(table string, columns []string, primaryKey string) string

	// TransactionalDDL reports whether CREATE TABLE can run inside the
	// run transaction.
	TransactionalDDL() bool
}

// CreateTableSQL renders the CREATE TABLE statement for schema in d.
func CreateTableSQL(d Dialect, schema csvetl.TableSchema) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %s (\n", d.Quote(schema.Name))
	for i, col := range schema.Columns {
		if i > 0 {
			sb.WriteString(",\n")
		}
		fmt.Fprintf(&sb, "    %s %s", d.Quote(col.Name), d.ColumnType(col))
	}
	if schema.PrimaryKey != "" {
		fmt.Fprintf(&sb, ",\n    PRIMARY KEY (%s)", d.Quote(schema.PrimaryKey))
	}
	sb.WriteString("\n)")
	return sb.String()
}

// InsertSQL renders a single-row parameterised INSERT.
func InsertSQL(d Dialect, table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(quoteAll(d, columns), ", "), placeholders(len(columns)))
}

// TruncateSQL empties a table with DELETE so the statement stays inside the
// transaction on every engine.
func TruncateSQL(d Dialect, table string) string {
	return "DELETE FROM " + d.Quote(table)
}

func quoteAll(d Dialect, identifiers []string) []string {
	out := make([]string, len(identifiers))
	for i, id := range identifiers {
		out[i] = d.Quote(id)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ForDriver returns the dialect for driver.
func ForDriver(driver csvetl.Driver) (Dialect, error) {
	switch driver {
	case csvetl.DriverSQLite:
		return SQLite{}, nil
	case csvetl.DriverMySQL:
		return MySQL{}, nil
	default:
		return nil, fmt.Errorf("no SQL dialect for driver %q: %w", driver, csvetl.ErrUnsupportedDriver)
	}
}

// SQLite is the modernc.org/sqlite dialect.
type SQLite struct{}

func (SQLite) Driver() csvetl.Driver { return csvetl.DriverSQLite }
func (SQLite) DriverName() string    { return "sqlite" }

func (SQLite) Quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func (SQLite) ColumnType(def csvetl.ColumnDef) string {
	switch def.Type {
	case csvetl.ColumnShortText:
		return fmt.Sprintf("VARCHAR(%d)", csvetl.ShortTextMaxLength)
	case csvetl.ColumnLongText, csvetl.ColumnHugeText:
		return "TEXT"
	case csvetl.ColumnInteger:
		return "INTEGER"
	case csvetl.ColumnDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", def.Precision, def.Scale)
	case csvetl.ColumnDatetime:
		return "DATETIME"
	case csvetl.ColumnBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (SQLite) TableExistsQuery() string {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
}

func (d SQLite) UpsertSQL(table string, columns []string, primaryKey string) string {
	var updates []string
	for _, col := range columns {
		if col != primaryKey {
			q := d.Quote(col)
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", q, q))
		}
	}
	action := "DO NOTHING"
	if len(updates) > 0 {
		action = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) %s", InsertSQL(d, table, columns), d.Quote(primaryKey), action)
}

func (SQLite) TransactionalDDL() bool { return true }

// MySQL is the go-sql-driver/mysql dialect. It also serves MariaDB.
type MySQL struct{}

func (MySQL) Driver() csvetl.Driver { return csvetl.DriverMySQL }
func (MySQL) DriverName() string    { return "mysql" }

func (MySQL) Quote(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

func (MySQL) ColumnType(def csvetl.ColumnDef) string {
	switch def.Type {
	case csvetl.ColumnShortText:
		return fmt.Sprintf("VARCHAR(%d)", csvetl.ShortTextMaxLength)
	case csvetl.ColumnLongText:
		return "TEXT"
	case csvetl.ColumnInteger:
		return "BIGINT"
	case csvetl.ColumnDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", def.Precision, def.Scale)
	case csvetl.ColumnDatetime:
		return "DATETIME"
	case csvetl.ColumnBoolean:
		return "BOOLEAN"
	default:
		return "LONGTEXT"
	}
}

func (MySQL) TableExistsQuery() string {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
}

func (d MySQL) UpsertSQL(table string, columns []string, primaryKey string) string {
	var updates []string
	for _, col := range columns {
		if col != primaryKey {
			q := d.Quote(col)
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", q, q))
		}
	}
	if len(updates) == 0 {
		q := d.Quote(primaryKey)
		updates = append(updates, fmt.Sprintf("%s = %s", q, q))
	}
	return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s", InsertSQL(d, table, columns), strings.Join(updates, ", "))
}

func (MySQL) TransactionalDDL() bool { return false }
