package csvetl

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// LogicalType is the per-column type tag carried by a Dataset.
type LogicalType string

const (
	LogicalText        LogicalType = "text"
	LogicalCategorical LogicalType = "categorical"
	LogicalDecimal     LogicalType = "decimal"
	LogicalInteger     LogicalType = "integer"
	LogicalDatetime    LogicalType = "datetime"
	LogicalBoolean     LogicalType = "boolean"
)

// IsValid returns true if the LogicalType is one of the defined tags.
func (t LogicalType) IsValid() bool {
	switch t {
	case LogicalText, LogicalCategorical, LogicalDecimal, LogicalInteger, LogicalDatetime, LogicalBoolean:
		return true
	}
	return false
}

// Kind identifies which payload a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindDecimal
	KindInteger
	KindTime
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindDecimal:
		return "decimal"
	case KindInteger:
		return "integer"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a single nullable cell. The zero Value is null.
type Value struct {
	kind Kind
	text string
	dec  decimal.Decimal
	num  int64
	ts   time.Time
	flag bool
}

// Null returns the null cell.
func Null() Value { return Value{} }

// Text returns a text cell. The empty string is a value, not a null.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Decimal returns a fixed-point numeric cell.
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, dec: d} }

// Integer returns an integer cell.
func Integer(i int64) Value { return Value{kind: KindInteger, num: i} }

// Time returns a timestamp cell.
func Time(t time.Time) Value { return Value{kind: KindTime, ts: t} }

// Bool returns a boolean cell.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Kind reports which payload the value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsText returns the text payload. ok is false for non-text cells.
func (v Value) AsText() (s string, ok bool) { return v.text, v.kind == KindText }

// AsDecimal returns the decimal payload. ok is false for non-decimal cells.
func (v Value) AsDecimal() (d decimal.Decimal, ok bool) { return v.dec, v.kind == KindDecimal }

// AsInteger returns the integer payload. ok is false for non-integer cells.
func (v Value) AsInteger() (i int64, ok bool) { return v.num, v.kind == KindInteger }

// AsTime returns the timestamp payload. ok is false for non-time cells.
func (v Value) AsTime() (t time.Time, ok bool) { return v.ts, v.kind == KindTime }

// AsBool returns the boolean payload. ok is false for non-boolean cells.
func (v Value) AsBool() (b bool, ok bool) { return v.flag, v.kind == KindBool }

// String renders the cell for display and for text-only drivers.
// Null renders as the empty string; use IsNull to tell them apart.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindDecimal:
		return v.dec.String()
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	case KindTime:
		return v.ts.Format(time.RFC3339Nano)
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.text == o.text
	case KindDecimal:
		return v.dec.Equal(o.dec)
	case KindInteger:
		return v.num == o.num
	case KindTime:
		return v.ts.Equal(o.ts)
	case KindBool:
		return v.flag == o.flag
	}
	return false
}

// Dataset is an in-memory table: ordered column names, one logical type per
// column and rows of cells. Every row has exactly len(Columns) cells.
//
// Pipeline stages never mutate a Dataset they receive; they return a new one.
type Dataset struct {
	Columns []string
	Types   []LogicalType
	Rows    [][]Value

	// Source identifies where the rows came from (file name).
	Source string

	// NullTokens are the raw strings that the transformer turns into nulls.
	NullTokens []string
}

// NewDataset builds a Dataset and checks its shape.
// A nil types slice means every column is text.
func NewDataset(columns []string, types []LogicalType, rows [][]Value) (*Dataset, error) {
	if types == nil {
		types = make([]LogicalType, len(columns))
		for i := range types {
			types[i] = LogicalText
		}
	}
	ds := &Dataset{Columns: columns, Types: types, Rows: rows}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks that column names are unique, that every column has a valid
// logical type and that every row has one cell per column.
func (d *Dataset) Validate() error {
	if len(d.Types) != len(d.Columns) {
		return fmt.Errorf("%d columns but %d types: %w", len(d.Columns), len(d.Types), ErrInternalInvariant)
	}
	seen := make(map[string]struct{}, len(d.Columns))
	for i, name := range d.Columns {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate column %q: %w", name, ErrInternalInvariant)
		}
		seen[name] = struct{}{}
		if !d.Types[i].IsValid() {
			return fmt.Errorf("column %q has invalid type %q: %w", name, d.Types[i], ErrInternalInvariant)
		}
	}
	for r, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d: %w", r+1, len(row), len(d.Columns), ErrInternalInvariant)
		}
	}
	return nil
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// ColumnIndex returns the position of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the Dataset shape and rows.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Columns:    append([]string(nil), d.Columns...),
		Types:      append([]LogicalType(nil), d.Types...),
		Rows:       make([][]Value, len(d.Rows)),
		Source:     d.Source,
		NullTokens: append([]string(nil), d.NullTokens...),
	}
	for i, row := range d.Rows {
		out.Rows[i] = append([]Value(nil), row...)
	}
	return out
}
