package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// Store is a csvetl.Store backed by a pgx pool.
type Store struct {
	pool    *pgxpool.Pool
	closers []func() error
	once    sync.Once
	err     error
}

// Option configures a Store.
type Option func(*Store)

// WithCloser registers a function run after the pool is closed, such as
// releasing a Cloud SQL dialer.
func WithCloser(fn func() error) Option {
	return func(s *Store) {
		s.closers = append(s.closers, fn)
	}
}

// New wraps pool. The Store takes ownership and closes it.
// Panics if pool is nil.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	if pool == nil {
		panic("pool cannot be nil")
	}
	s := &Store{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Begin(ctx context.Context) (csvetl.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (s *Store) Driver() csvetl.Driver {
	return csvetl.DriverPostgres
}

// Pool exposes the underlying pool for read-only inspection.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Close() error {
	s.once.Do(func() {
		s.pool.Close()
		var errs []error
		for _, fn := range s.closers {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}

// Tx is one run transaction.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", quoteTable(table)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return exists, nil
}

func (t *Tx) CreateTable(ctx context.Context, schema csvetl.TableSchema) error {
	if _, err := t.tx.Exec(ctx, CreateTableSQL(schema)); err != nil {
		return fmt.Errorf("create table %s: %w", schema.Name, err)
	}
	return nil
}

func (t *Tx) Truncate(ctx context.Context, table string) error {
	if _, err := t.tx.Exec(ctx, "TRUNCATE TABLE "+quoteTable(table)); err != nil {
		return fmt.Errorf("truncate table %s: %w", table, err)
	}
	return nil
}

// InsertBatch copies plain appends and batches upserts.
func (t *Tx) InsertBatch(ctx context.Context, batch csvetl.Batch) error {
	if len(batch.Rows) == 0 {
		return nil
	}
	if batch.Upsert {
		return t.upsert(ctx, batch)
	}
	return t.copy(ctx, batch)
}

func (t *Tx) copy(ctx context.Context, batch csvetl.Batch) error {
	rows := make([][]any, len(batch.Rows))
	for i, row := range batch.Rows {
		rows[i] = args(row)
	}

	n, err := t.tx.CopyFrom(ctx, tableIdentifier(batch.Table), batch.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", batch.Table, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy into %s wrote %d of %d rows", batch.Table, n, len(rows))
	}
	return nil
}

func (t *Tx) upsert(ctx context.Context, batch csvetl.Batch) error {
	query := UpsertSQL(batch.Table, batch.Columns, batch.PrimaryKey)

	b := &pgx.Batch{}
	for _, row := range batch.Rows {
		b.Queue(query, args(row)...)
	}

	results := t.tx.SendBatch(ctx, b)
	for i := range batch.Rows {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("upsert row %d into %s: %w", i+1, batch.Table, err)
		}
	}
	return results.Close()
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// args converts a row into driver arguments.
func args(row []csvetl.Value) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = arg(v)
	}
	return out
}

func arg(v csvetl.Value) any {
	switch v.Kind() {
	case csvetl.KindText:
		s, _ := v.AsText()
		return s
	case csvetl.KindDecimal:
		d, _ := v.AsDecimal()
		return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
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
