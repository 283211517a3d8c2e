package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/csvetl/internal/logging"
	"github.com/vvka-141/csvetl/internal/testing/memstore"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

func TestProvision_CreatesMissingTable(t *testing.T) {
	store := memstore.New()
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)

	ds := dataset(t, []string{"id", "amount"}, []csvetl.LogicalType{csvetl.LogicalText, csvetl.LogicalDecimal})
	res, err := NewProvisioner(logging.NewNullLogger()).Provision(context.Background(), tx, ds, csvetl.LoadConfig{Table: "sales", PrimaryKey: "id"}.WithDefaults())
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, "id", res.Schema.PrimaryKey)
	assert.Equal(t, []string{"begin", "exists sales", "create sales"}, store.Ops())

	require.NoError(t, tx.Commit(context.Background()))
	require.NotNil(t, store.Table("sales"))
	assert.Equal(t, csvetl.ColumnDecimal, store.Table("sales").Schema.Columns[1].Type)
}

func TestProvision_ExistingTableUntouched(t *testing.T) {
	store := memstore.New()
	existing := csvetl.TableSchema{Name: "sales", Columns: []csvetl.ColumnDef{{Name: "id", Type: csvetl.ColumnInteger}}}
	store.Seed(existing)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)

	ds := dataset(t, []string{"id", "extra"}, nil)
	res, err := NewProvisioner(logging.NewNullLogger()).Provision(context.Background(), tx, ds, csvetl.LoadConfig{Table: "sales"}.WithDefaults())
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, []string{"begin", "exists sales"}, store.Ops())
	require.NoError(t, tx.Commit(context.Background()))
	assert.Equal(t, existing.Columns, store.Table("sales").Schema.Columns)
}

func TestProvision_StoreFailuresAreWriteErrors(t *testing.T) {
	boom := errors.New("permission denied for schema public")

	tests := []struct {
		name   string
		faults memstore.Faults
	}{
		{"exists check fails", memstore.Faults{Exists: boom}},
		{"create fails", memstore.Faults{Create: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			store.Faults = tt.faults
			tx, err := store.Begin(context.Background())
			require.NoError(t, err)

			ds := dataset(t, []string{"id"}, nil)
			_, err = NewProvisioner(logging.NewNullLogger()).Provision(context.Background(), tx, ds, csvetl.LoadConfig{Table: "t"}.WithDefaults())
			require.Error(t, err)
			assert.ErrorIs(t, err, csvetl.ErrWrite)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestProvision_MissingPrimaryKeyColumn(t *testing.T) {
	store := memstore.New()
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)

	ds := dataset(t, []string{"name"}, nil)
	_, err = NewProvisioner(logging.NewNullLogger()).Provision(context.Background(), tx, ds, csvetl.LoadConfig{Table: "t", PrimaryKey: "id"}.WithDefaults())
	assert.ErrorIs(t, err, csvetl.ErrSchemaConflict)
	assert.Equal(t, []string{"begin"}, store.Ops(), "no store call before the key is validated")
}
