// Package table turns raw submission bytes into a column-addressable table.
//
// Two formats are understood: CSV with a header row, and whitespace
// separated text (".txt") where each line is "word v1 v2 ... vn". Failures
// are reported as typed errors; parsing never panics on untrusted input.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Column names produced by the whitespace format.
const (
	WordColumn   = "word"
	VectorColumn = "vector"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	lfsPointer = []byte("version https://git-lfs.github.com/spec/")
)

// Table is a parsed submission with a fixed row count.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New builds a table from a header and rows. Every row must have one value
// per column.
func New(columns []string, rows [][]string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformed, c)
		}
		index[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrMalformed, i+1, len(r), len(columns))
		}
	}
	return &Table{columns: columns, index: index, rows: rows}, nil
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of one column's values.
func (t *Table) Column(name string) ([]string, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, true
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Parse decodes a submission file. The format is chosen from the file
// extension: ".txt" is whitespace text, anything else is CSV.
func Parse(name string, data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{File: name, Err: ErrEmpty}
	}
	if bytes.HasPrefix(data, lfsPointer) {
		return nil, &ParseError{File: name, Err: ErrLFSPointer}
	}

	if strings.EqualFold(path.Ext(name), ".txt") {
		return parseWhitespace(name, data)
	}
	return parseCSV(name, data)
}

func parseCSV(name string, data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 0 // every record must match the header width
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, wrapCSVError(name, err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapCSVError(name, err)
		}
		rows = append(rows, rec)
	}

	t, err := New(columns, rows)
	if err != nil {
		return nil, &ParseError{File: name, Err: err}
	}
	return t, nil
}

func wrapCSVError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{File: name, Line: pe.Line, Err: fmt.Errorf("%w: %v", ErrMalformed, pe.Err)}
	}
	return &ParseError{File: name, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
}

func parseWhitespace(name string, data []byte) (*Table, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	rows := make([][]string, 0, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, &ParseError{File: name, Line: i + 1, Err: fmt.Errorf("%w: expected a word followed by values", ErrMalformed)}
		}
		rows = append(rows, []string{fields[0], strings.Join(fields[1:], " ")})
	}

	t, err := New([]string{WordColumn, VectorColumn}, rows)
	if err != nil {
		return nil, &ParseError{File: name, Err: err}
	}
	return t, nil
}
