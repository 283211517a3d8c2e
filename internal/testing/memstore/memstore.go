// Package memstore is a transactional in-memory csvetl.Store for tests.
//
// A transaction works on a private copy of every table; Commit publishes the
// copy and Rollback drops it, so a failed run leaves committed state untouched.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// Driver is reported by Store.Driver.
const Driver csvetl.Driver = "memory"

// Table is the committed content of one table.
type Table struct {
	Schema csvetl.TableSchema
	Rows   [][]csvetl.Value
}

func (t *Table) clone() *Table {
	out := &Table{Schema: t.Schema, Rows: make([][]csvetl.Value, len(t.Rows))}
	out.Schema.Columns = append([]csvetl.ColumnDef(nil), t.Schema.Columns...)
	for i, r := range t.Rows {
		out.Rows[i] = append([]csvetl.Value(nil), r...)
	}
	return out
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Schema.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Faults injects failures. Batch numbers are 1-based and count InsertBatch
// calls within one transaction.
type Faults struct {
	Begin      error
	Exists     error
	Create     error
	Truncate   error
	Commit     error
	Rollback   error
	FailBatch  int
	BatchError error

	// BeforeInsert runs before every InsertBatch; a non-nil error fails the batch.
	BeforeInsert func(ctx context.Context, batch int) error
}

// Store is an in-memory csvetl.Store. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	tables map[string]*Table
	ops    []string
	closed bool

	Faults Faults
}

var _ csvetl.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{tables: make(map[string]*Table)}
}

// Seed creates a committed table with the given rows.
func (s *Store) Seed(schema csvetl.TableSchema, rows ...[]csvetl.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Table{Schema: schema}
	for _, r := range rows {
		t.Rows = append(t.Rows, append([]csvetl.Value(nil), r...))
	}
	s.tables[schema.Name] = t
}

// Table returns a copy of the committed table, or nil.
func (s *Store) Table(name string) *Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	return t.clone()
}

// Ops lists the operations performed, in order.
func (s *Store) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, fmt.Sprintf(format, args...))
}

func (s *Store) Driver() csvetl.Driver { return Driver }

func (s *Store) Begin(ctx context.Context) (csvetl.Tx, error) {
	s.record("begin")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Faults.Begin != nil {
		return nil, s.Faults.Begin
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("store is closed")
	}
	snapshot := make(map[string]*Table, len(s.tables))
	for name, t := range s.tables {
		snapshot[name] = t.clone()
	}
	return &Tx{store: s, tables: snapshot}, nil
}

func (s *Store) Close() error {
	s.record("close")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Tx is a transaction over a private copy of the tables.
type Tx struct {
	store   *Store
	tables  map[string]*Table
	batches int
	done    bool
}

var _ csvetl.Tx = (*Tx)(nil)

func (tx *Tx) check(ctx context.Context) error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	return ctx.Err()
}

func (tx *Tx) TableExists(ctx context.Context, table string) (bool, error) {
	tx.store.record("exists %s", table)
	if err := tx.check(ctx); err != nil {
		return false, err
	}
	if tx.store.Faults.Exists != nil {
		return false, tx.store.Faults.Exists
	}
	_, ok := tx.tables[table]
	return ok, nil
}

func (tx *Tx) CreateTable(ctx context.Context, schema csvetl.TableSchema) error {
	tx.store.record("create %s", schema.Name)
	if err := tx.check(ctx); err != nil {
		return err
	}
	if tx.store.Faults.Create != nil {
		return tx.store.Faults.Create
	}
	if _, ok := tx.tables[schema.Name]; ok {
		return fmt.Errorf("relation %q already exists", schema.Name)
	}
	tx.tables[schema.Name] = (&Table{Schema: schema}).clone()
	return nil
}

func (tx *Tx) Truncate(ctx context.Context, table string) error {
	tx.store.record("truncate %s", table)
	if err := tx.check(ctx); err != nil {
		return err
	}
	if tx.store.Faults.Truncate != nil {
		return tx.store.Faults.Truncate
	}
	t, ok := tx.tables[table]
	if !ok {
		return fmt.Errorf("relation %q does not exist", table)
	}
	t.Rows = nil
	return nil
}

func (tx *Tx) InsertBatch(ctx context.Context, batch csvetl.Batch) error {
	tx.batches++
	n := tx.batches
	tx.store.record("insert %s %d", batch.Table, len(batch.Rows))
	if err := tx.check(ctx); err != nil {
		return err
	}
	if hook := tx.store.Faults.BeforeInsert; hook != nil {
		if err := hook(ctx, n); err != nil {
			return err
		}
	}
	if tx.store.Faults.FailBatch == n {
		if tx.store.Faults.BatchError != nil {
			return tx.store.Faults.BatchError
		}
		return fmt.Errorf("injected failure in batch %d", n)
	}

	t, ok := tx.tables[batch.Table]
	if !ok {
		return fmt.Errorf("relation %q does not exist", batch.Table)
	}

	positions := make([]int, len(batch.Columns))
	for i, c := range batch.Columns {
		positions[i] = t.columnIndex(c)
		if positions[i] < 0 {
			return fmt.Errorf("column %q of relation %q does not exist", c, batch.Table)
		}
	}
	keyPos := -1
	if t.Schema.PrimaryKey != "" {
		keyPos = t.columnIndex(t.Schema.PrimaryKey)
	}

	for _, in := range batch.Rows {
		row := make([]csvetl.Value, len(t.Schema.Columns))
		for i, v := range in {
			row[positions[i]] = v
		}

		existing := -1
		if keyPos >= 0 {
			if row[keyPos].IsNull() {
				return fmt.Errorf("null value in column %q violates not-null constraint", t.Schema.PrimaryKey)
			}
			existing = findKey(t.Rows, keyPos, row[keyPos])
		}

		switch {
		case existing < 0:
			t.Rows = append(t.Rows, row)
		case batch.Upsert:
			for i := range row {
				if i != keyPos && containsInt(positions, i) {
					t.Rows[existing][i] = row[i]
				}
			}
		default:
			return fmt.Errorf("duplicate key value violates unique constraint on %q: %s", t.Schema.PrimaryKey, row[keyPos])
		}
	}
	return nil
}

func (tx *Tx) Commit(ctx context.Context) error {
	tx.store.record("commit")
	if err := tx.check(ctx); err != nil {
		return err
	}
	if tx.store.Faults.Commit != nil {
		return tx.store.Faults.Commit
	}
	tx.done = true

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.store.tables = tx.tables
	return nil
}

func (tx *Tx) Rollback(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.store.record("rollback")
	tx.done = true
	tx.tables = nil
	return tx.store.Faults.Rollback
}

func findKey(rows [][]csvetl.Value, pos int, key csvetl.Value) int {
	for i, r := range rows {
		if r[pos].String() == key.String() {
			return i
		}
	}
	return -1
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// TableNames lists committed tables in sorted order.
func (s *Store) TableNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Connector hands out a Store, or Err.
type Connector struct {
	Store *Store
	Err   error

	mu       sync.Mutex
	connects int
}

var _ csvetl.Connector = (*Connector)(nil)

func (c *Connector) Connect(ctx context.Context) (csvetl.Store, error) {
	c.mu.Lock()
	c.connects++
	c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}

	// A new connection to the same database: committed tables survive.
	c.Store.mu.Lock()
	c.Store.closed = false
	c.Store.mu.Unlock()
	return c.Store, nil
}

// Connects reports how many times Connect was called.
func (c *Connector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}
