package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// Store is a csvetl.Store over a sqlx handle.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	once    sync.Once
	err     error
}

// New wraps db. The Store takes ownership and closes it.
// Panics if db or dialect is nil.
func New(db *sqlx.DB, dialect Dialect) *Store {
	if db == nil {
		panic("db cannot be nil")
	}
	if dialect == nil {
		panic("dialect cannot be nil")
	}
	return &Store{db: db, dialect: dialect}
}

func (s *Store) Begin(ctx context.Context) (csvetl.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx, db: s.db, dialect: s.dialect}, nil
}

func (s *Store) Driver() csvetl.Driver {
	return s.dialect.Driver()
}

// DB exposes the handle for read-only inspection.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Close() error {
	s.once.Do(func() {
		s.err = s.db.Close()
	})
	return s.err
}

// Tx is one run transaction.
type Tx struct {
	tx      *sqlx.Tx
	db      *sqlx.DB
	dialect Dialect

	// created lists tables made outside the transaction, dropped on rollback.
	created []string
	done    bool
}

func (t *Tx) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	if err := t.tx.GetContext(ctx, &n, t.dialect.TableExistsQuery(), table); err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

func (t *Tx) CreateTable(ctx context.Context, schema csvetl.TableSchema) error {
	ddl := CreateTableSQL(t.dialect, schema)
	if t.dialect.TransactionalDDL() {
		if _, err := t.tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", schema.Name, err)
		}
		return nil
	}

	if _, err := t.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", schema.Name, err)
	}
	t.created = append(t.created, schema.Name)
	return nil
}

func (t *Tx) Truncate(ctx context.Context, table string) error {
	if _, err := t.tx.ExecContext(ctx, TruncateSQL(t.dialect, table)); err != nil {
		return fmt.Errorf("truncate table %s: %w", table, err)
	}
	return nil
}

// InsertBatch prepares the row statement once and executes it per row.
func (t *Tx) InsertBatch(ctx context.Context, batch csvetl.Batch) error {
	if len(batch.Rows) == 0 {
		return nil
	}

	query := InsertSQL(t.dialect, batch.Table, batch.Columns)
	if batch.Upsert {
		query = t.dialect.UpsertSQL(batch.Table, batch.Columns, batch.PrimaryKey)
	}

	stmt, err := t.tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", batch.Table, err)
	}
	defer stmt.Close()

	for i, row := range batch.Rows {
		if _, err := stmt.ExecContext(ctx, args(row)...); err != nil {
			return fmt.Errorf("insert row %d into %s: %w", i+1, batch.Table, err)
		}
	}
	return nil
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return err
	}
	t.done = true
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	var errs []error
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		errs = append(errs, err)
	}
	for _, table := range t.created {
		if _, err := t.db.ExecContext(ctx, "DROP TABLE "+t.dialect.Quote(table)); err != nil {
			errs = append(errs, fmt.Errorf("drop table %s: %w", table, err))
		}
	}
	return errors.Join(errs...)
}

func args(row []csvetl.Value) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = arg(v)
	}
	return out
}

// arg converts a value for database/sql. Decimals travel as their exact
// string form.
func arg(v csvetl.Value) any {
	switch v.Kind() {
	case csvetl.KindText:
		s, _ := v.AsText()
		return s
	case csvetl.KindDecimal:
		d, _ := v.AsDecimal()
		return d.String()
	case csvetl.KindInteger:
		n, _ := v.AsInteger()
		return n
	case csvetl.KindTime:
		ts, _ := v.AsTime()
		return ts
	case csvetl.KindBool:
		b, _ := v.AsBool()
		return b
	default:
		return nil
	}
}
