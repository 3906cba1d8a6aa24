// Package table implements the stage boundary format: delimited tables whose
// column set grows additively as the pipeline advances. List-valued cells are
// JSON documents and are parsed structurally, never evaluated.
package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Row holds one record keyed by column name.
type Row map[string]string

// Table is an ordered set of columns plus rows. Column order is preserved
// across a read/write round trip so downstream headers stay stable.
type Table struct {
	Columns []string
	Rows    []Row
}

// New returns an empty table with the given column set.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column to the schema. Adding an existing column is an
// error: stages may only extend the column set, not overwrite it.
func (t *Table) AddColumn(name string) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	t.Columns = append(t.Columns, name)
	return nil
}

// Append adds a row. Cells for unknown columns are rejected so a stage cannot
// smuggle columns past the declared schema.
func (t *Table) Append(row Row) error {
	for col := range row {
		if !t.HasColumn(col) {
			return fmt.Errorf("row references undeclared column %q", col)
		}
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Read parses a table from CSV. The first record is the header; an empty body
// after the header is a valid zero-row table.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header record")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	t := New(header...)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}

		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// ReadFile reads a CSV table from disk. Files that are not valid UTF-8 are
// decoded as Latin-1; the first ingest of a request may arrive in a legacy
// single-byte encoding, while everything the pipeline writes is UTF-8.
func ReadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading table %q: %w", path, err)
	}

	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		r = transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder())
	}

	t, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("parsing table %q: %w", path, err)
	}
	return t, nil
}

// Write serializes the table as UTF-8 CSV. The header is always written, so a
// zero-row table still round-trips with its schema intact.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to disk.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating table %q: %w", path, err)
	}
	defer f.Close()

	if err := t.Write(f); err != nil {
		return fmt.Errorf("writing table %q: %w", path, err)
	}
	return f.Close()
}

// MarshalList encodes a list value for storage in a single cell.
func MarshalList(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding list cell: %w", err)
	}
	return string(data), nil
}

// ParseStringList decodes a JSON string-array cell. An empty cell is an empty
// list.
func ParseStringList(cell string) ([]string, error) {
	if cell == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(cell), &out); err != nil {
		return nil, fmt.Errorf("decoding list cell: %w", err)
	}
	return out, nil
}
