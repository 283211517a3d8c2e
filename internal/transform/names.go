package transform

import (
	"regexp"
	"strings"
)

var separatorRun = regexp.MustCompile(`[\s-]+`)

// NormalizeName trims, lower-cases and replaces runs of whitespace and
// hyphens with a single underscore: " Unit-Price " becomes "unit_price".
func NormalizeName(name string) string {
	return separatorRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}
