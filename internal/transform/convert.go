package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/shopspring/decimal"

	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// defaultDatetimeLayouts are tried in order when a datetime transform has no format.
var defaultDatetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// converter turns one raw cell into a typed value. ok is false when the text
// cannot be parsed as the column's type.
type converter func(raw string) (v csvetl.Value, ok bool)

// column describes how one output column is produced.
type column struct {
	logical csvetl.LogicalType
	convert converter
}

func identity(raw string) (csvetl.Value, bool) { return csvetl.Text(raw), true }

// newColumn resolves a transform into its converter and logical type.
func newColumn(name string, t csvetl.ColumnTransform) (column, error) {
	kind, err := csvetl.ParseTransformKind(string(t.Kind))
	if err != nil {
		return column{}, fmt.Errorf("column %q: %w", name, err)
	}

	switch kind {
	case csvetl.TransformDatetime:
		conv, err := datetimeConverter(t.Format)
		if err != nil {
			return column{}, fmt.Errorf("column %q: %w", name, err)
		}
		return column{logical: csvetl.LogicalDatetime, convert: conv}, nil
	case csvetl.TransformNumeric:
		return column{logical: csvetl.LogicalDecimal, convert: parseDecimal}, nil
	case csvetl.TransformInteger:
		return column{logical: csvetl.LogicalInteger, convert: parseInteger}, nil
	case csvetl.TransformBoolean:
		return column{logical: csvetl.LogicalBoolean, convert: parseBoolean}, nil
	case csvetl.TransformCategorical:
		return column{logical: csvetl.LogicalCategorical, convert: identity}, nil
	case csvetl.TransformUppercase:
		return column{logical: csvetl.LogicalText, convert: textOp(strings.ToUpper)}, nil
	case csvetl.TransformLowercase:
		return column{logical: csvetl.LogicalText, convert: textOp(strings.ToLower)}, nil
	case csvetl.TransformTrim:
		return column{logical: csvetl.LogicalText, convert: textOp(strings.TrimSpace)}, nil
	}
	return column{}, fmt.Errorf("column %q: unhandled transform %q: %w", name, kind, csvetl.ErrInvalidConfig)
}

func textOp(op func(string) string) converter {
	return func(raw string) (csvetl.Value, bool) {
		return csvetl.Text(op(raw)), true
	}
}

// datetimeConverter builds a parser for format. Formats containing '%' are
// strftime patterns; anything else is a Go reference layout.
func datetimeConverter(format string) (converter, error) {
	layouts := defaultDatetimeLayouts
	if format != "" {
		layout := format
		if strings.Contains(format, "%") {
			var err error
			layout, err = strftime.Layout(format)
			if err != nil {
				return nil, fmt.Errorf("invalid datetime format %q: %v: %w", format, err, csvetl.ErrInvalidConfig)
			}
		}
		layouts = []string{layout}
	}

	return func(raw string) (csvetl.Value, bool) {
		s := strings.TrimSpace(raw)
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return csvetl.Time(t), true
			}
		}
		return csvetl.Null(), false
	}, nil
}

func parseDecimal(raw string) (csvetl.Value, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return csvetl.Null(), false
	}
	return csvetl.Decimal(d), true
}

func parseInteger(raw string) (csvetl.Value, bool) {
	i, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return csvetl.Null(), false
	}
	return csvetl.Integer(i), true
}

func parseBoolean(raw string) (csvetl.Value, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "yes", "y", "1":
		return csvetl.Bool(true), true
	case "false", "f", "no", "n", "0":
		return csvetl.Bool(false), true
	}
	return csvetl.Null(), false
}
