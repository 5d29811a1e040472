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
	"fmt"
	"strings"
)

// ErrIO represents errors opening, reading or writing a table file
type ErrIO struct {
	Path string
	Msg  string
	Err  error
}

// ErrMalformedInput represents delimited text that does not form a valid table.
// Line is 1-based; 0 means the defect is not tied to a line.
type ErrMalformedInput struct {
	Path string
	Line int
	Msg  string
	Err  error
}

// ErrMissingKeyColumn is returned when a table header lacks a join key column
type ErrMissingKeyColumn struct {
	Table   string
	Columns []string
}

func (e *ErrIO) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("io error: %s: %s", e.Path, e.Msg)
	}
	return fmt.Sprintf("io error: %s: %s: %v", e.Path, e.Msg, e.Err)
}

func (e *ErrIO) Unwrap() error {
	return e.Err
}

func (e *ErrMalformedInput) Error() string {
	location := e.Path
	if e.Line > 0 {
		location = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Err == nil {
		return fmt.Sprintf("malformed input: %s: %s", location, e.Msg)
	}
	return fmt.Sprintf("malformed input: %s: %s: %v", location, e.Msg, e.Err)
}

func (e *ErrMalformedInput) Unwrap() error {
	return e.Err
}

func (e *ErrMissingKeyColumn) Error() string {
	return fmt.Sprintf("missing key column: table %s has no column(s) %s", e.Table, strings.Join(e.Columns, ", "))
}
