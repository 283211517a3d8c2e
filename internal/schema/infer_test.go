package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/csvetl/pkg/csvetl"
)

func dataset(t *testing.T, columns []string, types []csvetl.LogicalType, rows ...[]csvetl.Value) *csvetl.Dataset {
	t.Helper()
	ds, err := csvetl.NewDataset(columns, types, rows)
	require.NoError(t, err)
	return ds
}

func TestTextColumnType_Boundaries(t *testing.T) {
	tests := []struct {
		length int
		want   csvetl.InferredColumnType
	}{
		{0, csvetl.ColumnShortText},
		{255, csvetl.ColumnShortText},
		{256, csvetl.ColumnLongText},
		{300, csvetl.ColumnLongText},
		{65535, csvetl.ColumnLongText},
		{65536, csvetl.ColumnHugeText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TextColumnType(tt.length), "length %d", tt.length)
	}
}

func TestInfer_TextSizing(t *testing.T) {
	ds := dataset(t,
		[]string{"short", "long", "empty", "multibyte"},
		nil,
		[]csvetl.Value{csvetl.Text("abc"), csvetl.Text(strings.Repeat("x", 300)), csvetl.Null(), csvetl.Text(strings.Repeat("é", 255))},
		[]csvetl.Value{csvetl.Null(), csvetl.Text("y"), csvetl.Null(), csvetl.Text("ü")},
	)

	schema, err := Infer(ds, csvetl.LoadConfig{Table: "t"}.WithDefaults())
	require.NoError(t, err)

	assert.Equal(t, "t", schema.Name)
	assert.Equal(t, csvetl.ColumnShortText, schema.Columns[0].Type)
	assert.Equal(t, csvetl.ColumnLongText, schema.Columns[1].Type, "300 characters infer to long_text")
	assert.Equal(t, csvetl.ColumnShortText, schema.Columns[2].Type, "all-null column defaults to short_text")
	assert.Equal(t, csvetl.ColumnShortText, schema.Columns[3].Type, "length counts characters, not bytes")
}

func TestInfer_NoRowsDefaultsToShortText(t *testing.T) {
	ds := dataset(t, []string{"a", "b"}, nil)
	schema, err := Infer(ds, csvetl.LoadConfig{Table: "t"}.WithDefaults())
	require.NoError(t, err)
	for _, c := range schema.Columns {
		assert.Equal(t, csvetl.ColumnShortText, c.Type)
	}
}

func TestInfer_TypedColumns(t *testing.T) {
	ds := dataset(t,
		[]string{"amount", "qty", "at", "ok", "region"},
		[]csvetl.LogicalType{csvetl.LogicalDecimal, csvetl.LogicalInteger, csvetl.LogicalDatetime, csvetl.LogicalBoolean, csvetl.LogicalCategorical},
	)
	load := csvetl.LoadConfig{Table: "t", DecimalPrecision: 18, DecimalScale: 4}.WithDefaults()

	schema, err := Infer(ds, load)
	require.NoError(t, err)

	assert.Equal(t, []csvetl.ColumnDef{
		{Name: "amount", Type: csvetl.ColumnDecimal, Precision: 18, Scale: 4},
		{Name: "qty", Type: csvetl.ColumnInteger},
		{Name: "at", Type: csvetl.ColumnDatetime},
		{Name: "ok", Type: csvetl.ColumnBoolean},
		{Name: "region", Type: csvetl.ColumnShortText},
	}, schema.Columns)
}

func TestInfer_DefaultDecimalPrecision(t *testing.T) {
	ds := dataset(t, []string{"amount"}, []csvetl.LogicalType{csvetl.LogicalDecimal})
	schema, err := Infer(ds, csvetl.LoadConfig{Table: "t"}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, 10, schema.Columns[0].Precision)
	assert.Equal(t, 2, schema.Columns[0].Scale)
}

func TestInfer_PrimaryKey(t *testing.T) {
	ds := dataset(t, []string{"order_id", "name"}, nil)

	schema, err := Infer(ds, csvetl.LoadConfig{Table: "t", PrimaryKey: "Order-ID"}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, "order_id", schema.PrimaryKey)

	_, err = Infer(ds, csvetl.LoadConfig{Table: "t", PrimaryKey: "id"}.WithDefaults())
	assert.ErrorIs(t, err, csvetl.ErrSchemaConflict)
}
