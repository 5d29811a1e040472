/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package table

import (
	"errors"
	"fmt"
)

// Table is an immutable header plus an ordered sequence of rows.
// Values are kept as the raw text they were read as; the empty string is the
// missing marker.
type Table struct {
	name    string
	header  []string
	columns map[string]int
	rows    [][]string
}

// New builds a Table, copying header and rows. It fails with ErrMalformedInput
// if the header repeats a column name or a row does not match the header width.
func New(name string, header []string, rows [][]string) (*Table, error) {
	b, err := NewBuilder(name, header)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := b.Append(append([]string(nil), row...)); err != nil {
			var malformed *ErrMalformedInput
			if errors.As(err, &malformed) {
				malformed.Msg = fmt.Sprintf("row %d: %s", i+1, malformed.Msg)
			}
			return nil, err
		}
	}
	return b.Build(), nil
}

// Builder accumulates rows for a Table. A Builder must not be used after Build.
type Builder struct {
	t *Table
}

// NewBuilder validates the header and returns a Builder for it.
func NewBuilder(name string, header []string) (*Builder, error) {
	t := &Table{
		name:    name,
		header:  append([]string(nil), header...),
		columns: make(map[string]int, len(header)),
	}
	for i, col := range t.header {
		if _, exists := t.columns[col]; exists {
			return nil, &ErrMalformedInput{Path: name, Line: 1, Msg: fmt.Sprintf("duplicate column %q in header", col)}
		}
		t.columns[col] = i
	}
	return &Builder{t: t}, nil
}

// Append adds a row. The builder takes ownership of the slice.
func (b *Builder) Append(row []string) error {
	if len(row) != len(b.t.header) {
		return &ErrMalformedInput{
			Path: b.t.name,
			Msg:  fmt.Sprintf("row has %d fields, header has %d", len(row), len(b.t.header)),
		}
	}
	b.t.rows = append(b.t.rows, row)
	return nil
}

// Grow reserves capacity for n more rows.
func (b *Builder) Grow(n int) {
	if n > cap(b.t.rows)-len(b.t.rows) {
		rows := make([][]string, len(b.t.rows), len(b.t.rows)+n)
		copy(rows, b.t.rows)
		b.t.rows = rows
	}
}

// Build returns the finished Table.
func (b *Builder) Build() *Table {
	t := b.t
	b.t = nil
	return t
}

// Name is the source the table was read from (a path or a database table).
func (t *Table) Name() string {
	return t.name
}

// Header returns a copy of the column names in order.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.header)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// ColumnIndex returns the position of a column in the header.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.columns[name]
	return i, ok
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Row returns a copy of row i in header order.
func (t *Table) Row(i int) []string {
	return append([]string(nil), t.rows[i]...)
}

// Value returns the value of column name in row i.
func (t *Table) Value(i int, name string) (string, bool) {
	col, ok := t.columns[name]
	if !ok {
		return "", false
	}
	return t.rows[i][col], true
}

// Record returns row i as a column name to value mapping.
func (t *Table) Record(i int) map[string]string {
	record := make(map[string]string, len(t.header))
	for col, pos := range t.columns {
		record[col] = t.rows[i][pos]
	}
	return record
}

// Each calls fn with every row in order, stopping at the first error.
// fn must not modify or retain row.
func (t *Table) Each(fn func(i int, row []string) error) error {
	for i, row := range t.rows {
		if err := fn(i, row); err != nil {
			return err
		}
	}
	return nil
}
