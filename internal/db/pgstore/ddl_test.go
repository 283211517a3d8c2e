package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

func TestColumnType(t *testing.T) {
	tests := []struct {
		def  csvetl.ColumnDef
		want string
	}{
		{csvetl.ColumnDef{Type: csvetl.ColumnShortText}, "VARCHAR(255)"},
		{csvetl.ColumnDef{Type: csvetl.ColumnLongText}, "VARCHAR(65535)"},
		{csvetl.ColumnDef{Type: csvetl.ColumnHugeText}, "TEXT"},
		{csvetl.ColumnDef{Type: csvetl.ColumnInteger}, "BIGINT"},
		{csvetl.ColumnDef{Type: csvetl.ColumnDecimal, Precision: 12, Scale: 4}, "NUMERIC(12,4)"},
		{csvetl.ColumnDef{Type: csvetl.ColumnDatetime}, "TIMESTAMP"},
		{csvetl.ColumnDef{Type: csvetl.ColumnBoolean}, "BOOLEAN"},
	}
	for _, tt := range tests {
		t.Run(string(tt.def.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnType(tt.def))
		})
	}
}

func TestCreateTableSQL(t *testing.T) {
	schema := csvetl.TableSchema{
		Name: "sales",
		Columns: []csvetl.ColumnDef{
			{Name: "id", Type: csvetl.ColumnInteger},
			{Name: "name", Type: csvetl.ColumnShortText},
			{Name: "amount", Type: csvetl.ColumnDecimal, Precision: 10, Scale: 2},
		},
		PrimaryKey: "id",
	}

	want := `CREATE TABLE "sales" (
    "id" BIGINT,
    "name" VARCHAR(255),
    "amount" NUMERIC(10,2),
    PRIMARY KEY ("id")
)`
	assert.Equal(t, want, CreateTableSQL(schema))
}

func TestCreateTableSQL_QuotesIdentifiers(t *testing.T) {
	schema := csvetl.TableSchema{
		Name:    `analytics.we"ird`,
		Columns: []csvetl.ColumnDef{{Name: "order", Type: csvetl.ColumnBoolean}},
	}
	assert.Equal(t, "CREATE TABLE \"analytics\".\"we\"\"ird\" (\n    \"order\" BOOLEAN\n)", CreateTableSQL(schema))
}

func TestUpsertSQL(t *testing.T) {
	got := UpsertSQL("sales", []string{"id", "name", "amount"}, "id")
	assert.Equal(t,
		`INSERT INTO "sales" ("id", "name", "amount") VALUES ($1, $2, $3) ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name", "amount" = EXCLUDED."amount"`,
		got)
}

func TestUpsertSQL_KeyOnly(t *testing.T) {
	got := UpsertSQL("ids", []string{"id"}, "id")
	assert.Equal(t, `INSERT INTO "ids" ("id") VALUES ($1) ON CONFLICT ("id") DO NOTHING`, got)
}

func TestArg(t *testing.T) {
	assert.Nil(t, arg(csvetl.Null()))
	assert.Equal(t, "x", arg(csvetl.Text("x")))
	assert.Equal(t, int64(5), arg(csvetl.Integer(5)))
	assert.Equal(t, true, arg(csvetl.Bool(true)))
}
