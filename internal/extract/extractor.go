package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/vvka-141/csvetl/internal/files/filesystem"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// cancelCheckInterval is how many records are read between context checks.
const cancelCheckInterval = 1024

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Extractor reads delimited sources through a FileSystemProvider.
type Extractor struct {
	fs     filesystem.FileSystemProvider
	logger csvetl.Logger
}

// NewExtractor creates an Extractor. Panics on nil dependencies.
func NewExtractor(fsys filesystem.FileSystemProvider, logger csvetl.Logger) *Extractor {
	if fsys == nil {
		panic("filesystem provider cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Extractor{fs: fsys, logger: logger}
}

// Extract parses the source into a Dataset whose columns are the header names
// verbatim and whose cells are all text.
func (e *Extractor) Extract(ctx context.Context, cfg csvetl.SourceConfig) (*csvetl.Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if _, err := e.fs.Stat(cfg.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", cfg.Path, csvetl.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("failed to access %s: %w", cfg.Path, err)
	}

	f, err := e.fs.Open(cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", cfg.Path, csvetl.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Path, err)
	}
	defer f.Close()

	r, validateUTF8, err := decodingReader(f, cfg.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}

	cr := csv.NewReader(r)
	cr.Comma = cfg.Delimiter
	if cr.Comma == 0 {
		cr.Comma = csvetl.DefaultDelimiter
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: missing header row: %w", cfg.Path, csvetl.ErrMalformedSource)
	}
	if err != nil {
		return nil, malformed(cfg.Path, err)
	}
	if validateUTF8 {
		if err := checkUTF8(cr, header); err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Path, err)
		}
	}
	columns := append([]string(nil), header...)
	if err := checkDuplicateHeaders(columns); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	cr.FieldsPerRecord = len(columns)

	var rows [][]csvetl.Value
	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(cfg.Path, err)
		}
		if validateUTF8 {
			if err := checkUTF8(cr, record); err != nil {
				return nil, fmt.Errorf("%s: %w", cfg.Path, err)
			}
		}

		row := make([]csvetl.Value, len(record))
		for i, field := range record {
			row[i] = csvetl.Text(field)
		}
		rows = append(rows, row)
	}

	ds, err := csvetl.NewDataset(columns, nil, rows)
	if err != nil {
		return nil, err
	}
	ds.Source = cfg.Name
	if ds.Source == "" {
		ds.Source = filepath.Base(cfg.Path)
	}
	ds.NullTokens = cfg.NullValues
	if ds.NullTokens == nil {
		ds.NullTokens = csvetl.DefaultNullValues
	}
	ds.NullTokens = append([]string(nil), ds.NullTokens...)

	e.logger.Verbose("Extracted %d rows x %d columns from %s", len(rows), len(columns), ds.Source)
	return ds, nil
}

// decodingReader wraps r so that it yields UTF-8. validateUTF8 is true when
// the bytes pass through undecoded and must be checked field by field.
func decodingReader(r io.Reader, label string) (out io.Reader, validateUTF8 bool, err error) {
	if label == "" {
		label = csvetl.DefaultEncoding
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, false, fmt.Errorf("unknown encoding %q: %w", label, csvetl.ErrMalformedSource)
	}

	br := bufio.NewReader(r)
	head, _ := br.Peek(3)

	switch {
	case bytes.HasPrefix(head, bomUTF8):
		if _, err := br.Discard(len(bomUTF8)); err != nil {
			return nil, false, err
		}
		return br, true, nil
	case bytes.HasPrefix(head, bomUTF16LE), bytes.HasPrefix(head, bomUTF16BE):
		return transform.NewReader(br, unicode.BOMOverride(enc.NewDecoder())), false, nil
	}

	if isUTF8(enc) {
		return br, true, nil
	}
	return transform.NewReader(br, enc.NewDecoder()), false, nil
}

func isUTF8(enc encoding.Encoding) bool {
	name, err := htmlindex.Name(enc)
	return err == nil && name == "utf-8"
}

func checkUTF8(cr *csv.Reader, fields []string) error {
	for i, field := range fields {
		if !utf8.ValidString(field) {
			line, col := cr.FieldPos(i)
			return fmt.Errorf("invalid UTF-8 at line %d, column %d: %w", line, col, csvetl.ErrMalformedSource)
		}
	}
	return nil
}

func checkDuplicateHeaders(columns []string) error {
	seen := make(map[string]int, len(columns))
	for i, name := range columns {
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("header %q appears in columns %d and %d: %w", name, prev+1, i+1, csvetl.ErrSchemaConflict)
		}
		seen[name] = i
	}
	return nil
}

func malformed(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		msg := strings.TrimPrefix(pe.Err.Error(), "csv: ")
		return fmt.Errorf("%s: line %d: %s: %w", path, pe.Line, msg, csvetl.ErrMalformedSource)
	}
	return fmt.Errorf("%s: %v: %w", path, err, csvetl.ErrMalformedSource)
}
