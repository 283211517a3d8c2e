package params

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// ParseKeyValuePairs converts a slice of "key=value" strings into a map.
func ParseKeyValuePairs(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not in key=value format (example: --conn-param application_name=etl): %w", pair, csvetl.ErrInvalidConfig)
		}
		if key == "" {
			return nil, fmt.Errorf("parameter has empty key: %q: %w", pair, csvetl.ErrInvalidConfig)
		}
		result[key] = value
	}

	return result, nil
}

// ParseTransforms reads "column=kind[:format]" entries. The format is kept
// verbatim, so datetime layouts may themselves contain colons.
func ParseTransforms(entries []string) (csvetl.ColumnTransformSpec, error) {
	spec := make(csvetl.ColumnTransformSpec, len(entries))

	for _, entry := range entries {
		column, rest, ok := strings.Cut(entry, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			return nil, fmt.Errorf("transform %q is not in column=kind[:format] format: %w", entry, csvetl.ErrInvalidConfig)
		}

		kindText, format, _ := strings.Cut(rest, ":")
		kind, err := csvetl.ParseTransformKind(kindText)
		if err != nil {
			return nil, fmt.Errorf("transform for column %q: %w", column, err)
		}
		if _, dup := spec[column]; dup {
			return nil, fmt.Errorf("column %q has more than one transform: %w", column, csvetl.ErrInvalidConfig)
		}
		spec[column] = csvetl.ColumnTransform{Kind: kind, Format: format}
	}

	return spec, nil
}

// FormatTransforms renders spec back into sorted flag form.
func FormatTransforms(spec csvetl.ColumnTransformSpec) []string {
	out := make([]string, 0, len(spec))
	for column, tr := range spec {
		entry := column + "=" + string(tr.Kind)
		if tr.Format != "" {
			entry += ":" + tr.Format
		}
		out = append(out, entry)
	}
	sort.Strings(out)
	return out
}

var delimiterNames = map[string]rune{
	"tab":       '\t',
	`\t`:        '\t',
	"comma":     ',',
	"semicolon": ';',
	"pipe":      '|',
}

// ParseDelimiter accepts a single character or one of tab, comma,
// semicolon and pipe. The empty string selects the default comma.
func ParseDelimiter(s string) (rune, error) {
	if s == "" {
		return csvetl.DefaultDelimiter, nil
	}
	if r, ok := delimiterNames[strings.ToLower(s)]; ok {
		return r, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character: %w", s, csvetl.ErrInvalidConfig)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
