package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/csvetl/internal/db/pgstore"
	"github.com/vvka-141/csvetl/internal/db/sqlstore"
	"github.com/vvka-141/csvetl/internal/extract"
	"github.com/vvka-141/csvetl/internal/files/filesystem"
	"github.com/vvka-141/csvetl/internal/logging"
	"github.com/vvka-141/csvetl/internal/params"
	"github.com/vvka-141/csvetl/internal/schema"
	"github.com/vvka-141/csvetl/internal/transform"
	"github.com/vvka-141/csvetl/internal/tui"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <source.csv>",
	Short: "Show the table a load would create",
	Long: `Inspect reads and converts a source file exactly as load does, then prints
the inferred column types and the CREATE TABLE statement for each driver.

No database connection is made.

Examples:
  csvetl inspect ./sales.csv
  csvetl inspect ./sales.csv --table sales --transform amount=numeric --driver postgres
  csvetl inspect --config ./jobs/sales.yaml`,
	Args: RequireSourcePath,
	RunE: runInspect,
}

type inspectFlagValues struct {
	job    jobFlags
	driver string
}

var inspectFlags inspectFlagValues

func init() {
	rootCmd.AddCommand(inspectCmd)

	registerJobFlags(inspectCmd, &inspectFlags.job)
	inspectCmd.Flags().StringVar(&inspectFlags.driver, "driver", "",
		"Only print DDL for this driver: postgres|sqlite|mysql (default: all)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	logger := logging.NewConsoleLogger(getVerboseFlag(cmd))

	settings, err := buildJobSettings(cmd, inspectFlags.job, args)
	if err != nil {
		return err
	}
	if settings.load.Table == "" {
		settings.load.Table = defaultTableName(settings.source.Path)
	}
	load := settings.load.WithDefaults()
	if err := load.Validate(); err != nil {
		return err
	}

	drivers := []csvetl.Driver{csvetl.DriverPostgres, csvetl.DriverMySQL, csvetl.DriverSQLite}
	if inspectFlags.driver != "" {
		d, err := csvetl.ParseDriver(inspectFlags.driver)
		if err != nil {
			return err
		}
		drivers = []csvetl.Driver{d}
	}

	ctx := context.Background()
	raw, err := extract.NewExtractor(filesystem.NewOSFileSystem(), logger).Extract(ctx, settings.source)
	if err != nil {
		return err
	}
	ds, err := transform.NewTransformer(logger).Transform(ctx, raw, settings.transforms, load)
	if err != nil {
		return err
	}
	tableSchema, err := schema.Infer(ds, load)
	if err != nil {
		return err
	}

	return writeInspection(cmd.OutOrStdout(), ds, settings.transforms, tableSchema, drivers)
}

func writeInspection(w io.Writer, ds *csvetl.Dataset, transforms csvetl.ColumnTransformSpec, tableSchema csvetl.TableSchema, drivers []csvetl.Driver) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s (%d rows, %d columns)\n", tui.LabelStyle.Render("Source"), ds.Source, ds.Len(), len(ds.Columns))
	fmt.Fprintf(&b, "%s %s\n", tui.LabelStyle.Render("Table"), tableSchema.Name)
	if len(transforms) > 0 {
		fmt.Fprintf(&b, "%s %s\n", tui.LabelStyle.Render("Transforms"), strings.Join(params.FormatTransforms(transforms), " "))
	}
	b.WriteString("\n")

	for _, col := range tableSchema.Columns {
		typ := string(col.Type)
		if col.Type == csvetl.ColumnDecimal {
			typ = fmt.Sprintf("%s(%d,%d)", typ, col.Precision, col.Scale)
		}
		marker := ""
		if col.Name == tableSchema.PrimaryKey {
			marker = "  primary key"
		}
		fmt.Fprintf(&b, "  %s %-24s %s%s\n", tui.SymbolBullet, col.Name, typ, marker)
	}

	for _, driver := range drivers {
		ddl, err := createTableSQL(driver, tableSchema)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "\n-- %s\n%s;\n", driver, ddl)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func createTableSQL(driver csvetl.Driver, tableSchema csvetl.TableSchema) (string, error) {
	if driver == csvetl.DriverPostgres {
		return pgstore.CreateTableSQL(tableSchema), nil
	}
	dialect, err := sqlstore.ForDriver(driver)
	if err != nil {
		return "", err
	}
	return sqlstore.CreateTableSQL(dialect, tableSchema), nil
}
